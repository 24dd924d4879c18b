package models

import (
	"errors"
	"testing"
)

func TestCheckShelfLevel(t *testing.T) {
	cases := []struct {
		name       string
		hasShelves bool
		shelf      string
		wantErr    bool
	}{
		{"4-level unit with shelf", true, "S1", false},
		{"4-level unit missing shelf", true, "", true},
		{"3-level unit without shelf", false, "", false},
		{"3-level unit with stray shelf", false, "S1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckShelfLevel(tc.hasShelves, tc.shelf)
			if tc.wantErr {
				if !errors.Is(err, ErrShelfRequired) {
					t.Fatalf("expected ErrShelfRequired, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStorageLocationFullLocation(t *testing.T) {
	shelf := "S2"
	withShelf := StorageLocation{RoomName: "R1", RackName: "A", CompartmentName: "C3", ShelfName: &shelf}
	if got := withShelf.FullLocation("GOA"); got != "GOA-R1-AC3S2" {
		t.Fatalf("got %q", got)
	}
	withoutShelf := StorageLocation{RoomName: "R1", RackName: "A", CompartmentName: "C3"}
	if got := withoutShelf.FullLocation("GOA"); got != "GOA-R1-AC3" {
		t.Fatalf("got %q", got)
	}
}
