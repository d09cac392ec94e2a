package model

import (
	"encoding/json"
	"testing"
)

func TestJSONBValueAndScan(t *testing.T) {
	original := JSONB{"name": "sitegrid", "count": 2}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	data, ok := value.([]byte)
	if !ok {
		t.Fatalf("expected []byte value, got %T", value)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal value error: %v", err)
	}

	if decoded["name"] != "sitegrid" {
		t.Fatalf("expected name sitegrid, got %v", decoded["name"])
	}

	var scanned JSONB
	if err := scanned.Scan(data); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if scanned["name"] != "sitegrid" {
		t.Fatalf("expected scanned name sitegrid, got %v", scanned["name"])
	}

	var fromString JSONB
	if err := fromString.Scan(`{"ok":true}`); err != nil {
		t.Fatalf("Scan(string) error: %v", err)
	}
	if fromString["ok"] != true {
		t.Fatalf("expected ok true, got %v", fromString["ok"])
	}
}

func TestJSONBScanRejectsOtherTypes(t *testing.T) {
	var j JSONB
	if err := j.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}

func TestJSONBGormDataType(t *testing.T) {
	value := JSONB{"ok": true}
	if value.GormDataType() != "jsonb" {
		t.Fatalf("expected jsonb data type, got %q", value.GormDataType())
	}
}
