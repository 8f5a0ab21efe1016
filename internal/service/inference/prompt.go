package inference

import (
	"fmt"
	"strings"

	"TrendPulse/internal/domain/models"
)

func buildScorePrompt(item *models.Item, f models.TrendFactors) string {
	var b strings.Builder

	b.WriteString("You are a market analyst for a tokenized-content marketplace. ")
	b.WriteString("Given normalized trend factors for one item, assign a weight to each factor ")
	b.WriteString("and produce a composite trend score.\n\n")

	fmt.Fprintf(&b, "Item: %q by %s\n", item.Title, item.Creator)
	fmt.Fprintf(&b, "Market context: price %d lamports, 24h volume %.2f, 24h price change %.2f%%, %d holders\n\n",
		item.Price, item.Volume24h, item.PriceChange24h, item.HolderCount)

	b.WriteString("Factors:\n")
	fmt.Fprintf(&b, "- sentiment: %.4f (range -1..1)\n", f.Sentiment)
	fmt.Fprintf(&b, "- tradingVelocity: %.4f (trades/minute)\n", f.TradingVelocity)
	fmt.Fprintf(&b, "- volumeSpike: %.4f (ratio vs 24h baseline)\n", f.VolumeSpike)
	fmt.Fprintf(&b, "- priceMomentum: %.4f\n", f.PriceMomentum)
	fmt.Fprintf(&b, "- socialActivity: %.4f (comments+likes/hour)\n", f.SocialActivity)
	fmt.Fprintf(&b, "- holderMomentum: %.4f\n", f.HolderMomentum)
	fmt.Fprintf(&b, "- crossMarketCorr: %.4f (range -1..1)\n\n", f.CrossMarketCorr)

	b.WriteString("Respond with a single JSON object, no prose outside it:\n")
	b.WriteString(`{"weights": {"sentiment": w1, "tradingVelocity": w2, "volumeSpike": w3, ` +
		`"priceMomentum": w4, "socialActivity": w5, "holderMomentum": w6, "crossMarketCorr": w7}, ` +
		`"score": 0-100, "confidence": 0-1, "reasoning": "one sentence"}`)
	b.WriteString("\nWeights must be non-negative and sum to 1.0.")

	return b.String()
}

func buildSentimentPrompt(headline, content string) string {
	const maxContent = 500
	if len(content) > maxContent {
		content = content[:maxContent]
	}
	return fmt.Sprintf(
		"Rate the sentiment of this marketplace listing from -1.0 (very negative) to 1.0 (very positive). "+
			"Respond with only the number.\n\nHeadline: %s\n\nContent: %s",
		headline, content)
}
