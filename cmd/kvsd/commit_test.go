package main

import "testing"

func TestSplitKV(t *testing.T) {
	key, val, err := splitKV("foo=bar")
	if err != nil {
		t.Fatalf("splitKV: %v", err)
	}
	if key != "foo" || val != "bar" {
		t.Fatalf("got key=%q val=%q", key, val)
	}
}

func TestSplitKVWithEquals(t *testing.T) {
	key, val, err := splitKV("foo=bar=baz")
	if err != nil {
		t.Fatalf("splitKV: %v", err)
	}
	if key != "foo" || val != "bar=baz" {
		t.Fatalf("got key=%q val=%q", key, val)
	}
}

func TestSplitKVMissingEquals(t *testing.T) {
	if _, _, err := splitKV("nosep"); err == nil {
		t.Fatal("expected error for missing '='")
	}
}
