package ad

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simp-lee/saleads/internal/domain"
)

func newService(f *fixture, autoVerify bool) *Service {
	return NewService(f.ads, f.categories, []string{"en", "ru"}, autoVerify, nil)
}

func validInput(f *fixture) CreateInput {
	return CreateInput{
		AuthorID:   f.alice.ID,
		CategoryID: 3,
		Price:      "49.90",
		Entries: []domain.AdEntry{
			{Language: "en", Name: " Road bike ", Description: " fast "},
			{Language: "ru", Name: "Шоссейный велосипед"},
		},
		Images: []string{"one.jpg", "two.jpg"},
	}
}

func TestService_Create(t *testing.T) {
	f := seedFixture(t)
	svc := newService(f, false)

	ad, err := svc.Create(context.Background(), validInput(f))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ad.ID == uuid.Nil {
		t.Fatal("expected an id")
	}
	if !ad.Price.Equal(decimal.RequireFromString("49.9")) {
		t.Errorf("Price = %s, want 49.90", ad.Price)
	}
	if ad.Verified {
		t.Error("expected new ads to await moderation")
	}
	if len(ad.Entries) != 2 || ad.Entries[0].Name != "Road bike" || ad.Entries[0].Description != "fast" {
		t.Errorf("Entries = %+v, want trimmed", ad.Entries)
	}
	if len(ad.Images) != 2 || ad.Images[0].Number != 1 || ad.Images[1].Number != 2 {
		t.Errorf("Images = %+v, want numbered from 1", ad.Images)
	}
	if ad.Author.Username != "alice" {
		t.Errorf("Author = %q, want alice", ad.Author.Username)
	}
}

func TestService_Create_AutoVerify(t *testing.T) {
	f := seedFixture(t)

	ad, err := newService(f, true).Create(context.Background(), validInput(f))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !ad.Verified {
		t.Error("expected auto-verified ad")
	}
}

func TestService_Create_Validation(t *testing.T) {
	f := seedFixture(t)
	svc := newService(f, false)

	tests := []struct {
		name   string
		modify func(*CreateInput)
		want   string
	}{
		{"price with three decimals", func(in *CreateInput) { in.Price = "1.999" }, "price"},
		{"price below minimum", func(in *CreateInput) { in.Price = "0" }, "price"},
		{"price not a number", func(in *CreateInput) { in.Price = "cheap" }, "price"},
		{"unknown category", func(in *CreateInput) { in.CategoryID = 99 }, "category does not exist"},
		{"grouping category", func(in *CreateInput) { in.CategoryID = 1 }, "does not accept ads"},
		{"no entries", func(in *CreateInput) { in.Entries = nil }, "at least one entry"},
		{"unsupported language", func(in *CreateInput) { in.Entries[0].Language = "de" }, "unsupported language"},
		{"duplicate language", func(in *CreateInput) { in.Entries[1].Language = "en" }, "duplicate entry"},
		{"blank name", func(in *CreateInput) { in.Entries[0].Name = "  " }, "needs a name"},
		{"too many images", func(in *CreateInput) { in.Images = make([]string, domain.MaxAdImages+1) }, "at most"},
		{"empty image path", func(in *CreateInput) { in.Images = []string{"a.jpg", " "} }, "empty path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(f)
			tt.modify(&in)
			_, err := svc.Create(context.Background(), in)
			if !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestService_Get_Visibility(t *testing.T) {
	f := seedFixture(t)
	svc := newService(f, false)

	tests := []struct {
		name      string
		id        uuid.UUID
		principal *domain.Principal
		wantFound bool
	}{
		{"verified to anonymous", f.a.ID, nil, true},
		{"unverified to anonymous", f.d.ID, nil, false},
		{"unverified to author", f.d.ID, &domain.Principal{UserID: f.bob.ID}, true},
		{"unverified to other user", f.d.ID, &domain.Principal{UserID: f.alice.ID}, false},
		{"unverified to staff", f.d.ID, &domain.Principal{UserID: 99, Staff: true}, true},
		{"missing ad", uuid.New(), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.principal != nil {
				ctx = domain.WithPrincipal(ctx, tt.principal)
			}
			ad, err := svc.Get(ctx, tt.id)
			if tt.wantFound {
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if ad.ID != tt.id {
					t.Errorf("ID = %s, want %s", ad.ID, tt.id)
				}
				return
			}
			if !domain.IsNotFound(err) {
				t.Errorf("expected not found, got %v", err)
			}
		})
	}
}
