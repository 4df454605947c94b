package stt

import "testing"

func TestAppendPCM(t *testing.T) {
	tests := []struct {
		name string
		pcm  []int16
		want []byte
	}{
		{"empty", nil, nil},
		{"zero", []int16{0}, []byte{0x00, 0x00}},
		{"positive", []int16{0x1234}, []byte{0x34, 0x12}},
		{"negative", []int16{-1}, []byte{0xff, 0xff}},
		{"sequence", []int16{1, 256}, []byte{0x01, 0x00, 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := appendPCM(nil, tt.pcm)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("byte %d = %#x, want %#x", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAppendPCMReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 64)
	got := appendPCM(buf, []int16{1, 2, 3})
	if &got[0] != &buf[:1][0] {
		t.Error("expected appendPCM to reuse the provided buffer")
	}
}

func TestDecodeFinal(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"text", `{"text": "hello world"}`, "hello world", false},
		{"empty_text", `{"text": ""}`, "", false},
		{"silence", `{}`, "", false},
		{"garbage", `not json`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeFinal(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodePartial(t *testing.T) {
	got, err := decodePartial(`{"partial": "hel"}`)
	if err != nil {
		t.Fatalf("decodePartial: %v", err)
	}
	if got != "hel" {
		t.Errorf("partial = %q, want %q", got, "hel")
	}

	if _, err := decodePartial(`{`); err == nil {
		t.Error("expected error for truncated JSON")
	}
}
