package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2026-03-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2026, 3, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2026, 3, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestBucketMinute(t *testing.T) {
	in := time.Date(2026, 3, 10, 10, 10, 42, 900, time.UTC)
	got := BucketMinute(in)
	if got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("not truncated: %v", got)
	}
	if !got.Equal(time.Date(2026, 3, 10, 10, 10, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bucket %v", got)
	}
}
