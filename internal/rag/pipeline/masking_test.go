package pipeline

import (
	"strings"
	"testing"
)

func TestMaskSensitiveAccountNumbers(t *testing.T) {
	in := "Bank Account: 123456789012, IFSC: HDFC0001234"
	out := MaskSensitive(in)

	if strings.Contains(out, "123456789012") {
		t.Errorf("Account number leaked: %q", out)
	}
	if !strings.Contains(out, "XXXXXXXX9012") {
		t.Errorf("Expected partial-reveal account number, got %q", out)
	}
	if strings.Contains(out, "HDFC0001234") {
		t.Errorf("IFSC code leaked: %q", out)
	}
	if !strings.Contains(out, "1234") {
		t.Errorf("Expected last four of the IFSC code to stay visible, got %q", out)
	}
}

func TestMaskSensitivePAN(t *testing.T) {
	out := MaskSensitive("PAN: ABCDE1234F, GST pending")
	if strings.Contains(out, "ABCDE1234F") {
		t.Errorf("PAN leaked: %q", out)
	}
	if !strings.Contains(out, "XXXXXX234F") {
		t.Errorf("Expected partial-reveal PAN, got %q", out)
	}
}

func TestMaskSensitiveLeavesOrdinaryText(t *testing.T) {
	in := "Founded in 2005, 250 employees, turnover 45 crore, phone 12345678"
	if out := MaskSensitive(in); out != in {
		t.Errorf("Ordinary text was modified: %q", out)
	}
}

func TestMaskSensitiveIsIdempotent(t *testing.T) {
	once := MaskSensitive("Account 987654321098")
	twice := MaskSensitive(once)
	if once != twice {
		t.Errorf("Masking is not idempotent: %q vs %q", once, twice)
	}
}
