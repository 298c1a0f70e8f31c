package gcsuploader

import "testing"

func TestParseInboxObject(t *testing.T) {
	tests := []struct {
		name       string
		wantOK     bool
		wantUser   string
		wantBucket string
	}{
		{"inbox/u1/receipt.jpg", true, "u1", ""},
		{"inbox/u1/BUSINESS/receipt.jpg", true, "u1", "BUSINESS"},
		{"inbox/u1/", false, "", ""},
		{"inbox/receipt.jpg", false, "", ""},
		{"inbox//receipt.jpg", false, "", ""},
		{"inbox/u1/a/b/receipt.jpg", false, "", ""},
		{"receipts/u1/receipt.jpg", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, ok := ParseInboxObject(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if obj.UserID != tt.wantUser || obj.Bucket != tt.wantBucket {
				t.Errorf("got user=%q bucket=%q, want user=%q bucket=%q", obj.UserID, obj.Bucket, tt.wantUser, tt.wantBucket)
			}
			if obj.Name != tt.name {
				t.Errorf("Name = %q, want %q", obj.Name, tt.name)
			}
		})
	}
}

func TestClaimedName(t *testing.T) {
	if got := ClaimedName("inbox/u1/receipt.jpg"); got != "claimed/u1/receipt.jpg" {
		t.Errorf("ClaimedName() = %q", got)
	}
	if got := ContentTypeForObject("inbox/u1/receipt.webp"); got != "image/webp" {
		t.Errorf("ContentTypeForObject() = %q", got)
	}
}
