package objectstore

import (
	"context"
	"strings"
	"testing"
)

func TestNew_Providers(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "gcs"}); err == nil {
		t.Error("expected error for unsupported provider")
	}
	c, err := New(context.Background(), Config{Provider: "memory"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*Memory); !ok {
		t.Errorf("expected *Memory, got %T", c)
	}
	if Enabled(Config{Provider: "none"}) || Enabled(Config{}) || !Enabled(Config{Provider: "minio"}) {
		t.Error("unexpected Enabled result")
	}
}

func TestMemory_PutGet(t *testing.T) {
	m := NewMemory()
	obj := Object{Key: "clips/a.wav", ContentType: "audio/wav", Metadata: map[string]string{"k": "v"}}
	if err := m.Put(context.Background(), obj, strings.NewReader("RIFF"), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, data, ok := m.Get("clips/a.wav")
	if !ok || string(data) != "RIFF" || got.ContentType != "audio/wav" || got.Metadata["k"] != "v" {
		t.Errorf("unexpected object %+v %q", got, data)
	}
	if err := m.Put(context.Background(), Object{Key: "short"}, strings.NewReader("ab"), 3); err == nil {
		t.Error("expected size mismatch error")
	}
	if len(m.Keys()) != 1 {
		t.Errorf("expected 1 key, got %v", m.Keys())
	}
}
