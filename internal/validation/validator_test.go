package validation

import (
	"errors"
	"fmt"
	"testing"
)

type sample struct {
	Name      string `json:"name" validate:"required,max=10"`
	MediaType string `json:"mediaType" validate:"required,oneof=movie tv"`
	Rating    *int   `json:"rating" validate:"omitempty,gte=1,lte=10"`
}

func TestStruct(t *testing.T) {
	rating := 11
	tests := []struct {
		name    string
		input   sample
		wantErr string
	}{
		{name: "valid", input: sample{Name: "ok", MediaType: "tv"}},
		{name: "missing name", input: sample{MediaType: "tv"}, wantErr: "name is required"},
		{name: "bad media type", input: sample{Name: "ok", MediaType: "book"}, wantErr: "mediaType must be one of: movie tv"},
		{name: "rating range", input: sample{Name: "ok", MediaType: "movie", Rating: &rating}, wantErr: "rating must be less than or equal to 10"},
		{name: "name too long", input: sample{Name: "abcdefghijk", MediaType: "movie"}, wantErr: "name must be at most 10 characters"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.input)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tc.wantErr {
				t.Fatalf("expected %q got %v", tc.wantErr, err)
			}
			if !IsValidationError(err) {
				t.Fatalf("expected RequestValidationError, got %T", err)
			}
		})
	}
}

func TestIsValidationErrorWrapped(t *testing.T) {
	err := fmt.Errorf("record watch: %w", New("season", "season is required for tv"))
	if !IsValidationError(err) {
		t.Fatal("expected wrapped validation error to be detected")
	}
	if IsValidationError(errors.New("boom")) {
		t.Fatal("plain errors are not validation errors")
	}
}
