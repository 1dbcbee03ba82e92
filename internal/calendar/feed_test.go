package calendar

import (
	"testing"
	"time"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Shul Events</title>
  <link>https://shul.example.org</link>
  <description>Upcoming</description>
  <item>
    <title>Selichos</title>
    <category>Minyan</category>
    <description>&lt;p&gt;First night&lt;/p&gt;</description>
    <pubDate>Mon, 08 Jan 2024 06:15:00 +0000</pubDate>
  </item>
  <item>
    <title>Old News</title>
    <pubDate>Fri, 01 Dec 2023 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title>No Date</title>
  </item>
</channel>
</rss>`

func TestParseFeed(t *testing.T) {
	w := NewWindow(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), 7, 56)

	entries, err := ParseFeed([]byte(testRSS), w, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.Title != "Selichos" || e.Type != "Minyan" {
		t.Errorf("entry = %+v", e)
	}
	if e.StartTime == nil || e.StartTime.String() != "06:15:00" {
		t.Errorf("StartTime = %v", e.StartTime)
	}
	if !e.Date.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", e.Date)
	}
}

func TestParseFeed_Invalid(t *testing.T) {
	w := NewWindow(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), 7, 56)
	if _, err := ParseFeed([]byte("not a feed"), w, time.UTC); err == nil {
		t.Error("expected error for invalid feed")
	}
}
