package cli

import (
	"strings"
	"testing"
	"time"
)

func TestFormatModified(t *testing.T) {
	if got := formatModified(0); got != "-" {
		t.Errorf("formatModified(0) = %q, want %q", got, "-")
	}

	epoch := 1.7544e+09
	want := time.Unix(int64(epoch), 0).Format("2006-01-02 15:04")
	got := formatModified(epoch)
	if got != want {
		t.Errorf("formatModified(%v) = %q, want %q", epoch, got, want)
	}
	if strings.Contains(got, "%!") {
		t.Errorf("formatModified(%v) = %q, contains a format artifact", epoch, got)
	}
}
