package ebm

import (
	"testing"

	"bitbucket.org/medilink/pharmacy_backend/models"
)

func TestFormatTin(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"nine digits unchanged", "123456789", "123456789"},
		{"short numeric left-padded", "123", "000000123"},
		{"whitespace trimmed then padded", "  4567  ", "000004567"},
		{"non-numeric passthrough", "RW-XYZ", "RW-XYZ"},
		{"empty stays empty", "   ", ""},
		{"long numeric untouched", "1234567890", "1234567890"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatTin(tc.in); got != tc.want {
				t.Fatalf("FormatTin(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestResolveBranchCode(t *testing.T) {
	cases := []struct {
		name   string
		branch *models.Branch
		want   string
	}{
		{"nil branch", nil, "00"},
		{"standalone two digit token", &models.Branch{Name: "Kigali 07 Main"}, "07"},
		{"no token", &models.Branch{Name: "Kigali Main"}, "00"},
		{"three digit run is not a token", &models.Branch{Name: "Depot 075"}, "00"},
		{"token at end", &models.Branch{Name: "Huye 12"}, "12"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveBranchCode(tc.branch); got != tc.want {
				t.Fatalf("ResolveBranchCode = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGenerateReference(t *testing.T) {
	// deterministic
	a := GenerateReference("a1b2c3d4-e5f6-7890-abcd-ef0123456789")
	b := GenerateReference("a1b2c3d4-e5f6-7890-abcd-ef0123456789")
	if a != b {
		t.Fatalf("reference not deterministic: %d vs %d", a, b)
	}

	// last 8 hex chars, base 16
	if got := GenerateReference("00000000ff"); got != 0xff {
		t.Fatalf("GenerateReference = %d, want %d", got, 0xff)
	}
	// separators stripped before taking the tail
	if got := GenerateReference("id-ABCD-1234"); got != 0xABCD1234 {
		t.Fatalf("GenerateReference with separators = %d, want %d", got, 0xABCD1234)
	}
	if got := GenerateReference("---"); got != 0 {
		t.Fatalf("GenerateReference on empty hex = %d, want 0", got)
	}
}

func TestClassifyItemType(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Consultation Fee", ItemTypeService},
		{"General SERVICE charge", ItemTypeService},
		{"TV repair", ItemTypeService},
		{"Staff training day", ItemTypeService},
		{"Home visit", ItemTypeService},
		{"Paracetamol 500mg", ItemTypeGoods},
		{"Amoxicillin", ItemTypeGoods},
	}
	for _, tc := range cases {
		if got := ClassifyItemType(tc.name); got != tc.want {
			t.Fatalf("ClassifyItemType(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
