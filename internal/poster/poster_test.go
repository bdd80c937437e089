package poster

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
)

func TestNewGeminiGeneratorMissingAPIKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), Config{
		APIKey: "",
		Model:  "gemini-3-pro-image-preview",
	})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("API キーが空なら ErrMissingAPIKey が返るべき: got %v", err)
	}
}

// encodeTestPNG は指定サイズの PNG バイト列を作るヘルパーです。
func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("テスト用 PNG の生成に失敗: %v", err)
	}
	return buf.Bytes()
}

func TestStampDPI(t *testing.T) {
	data := encodeTestPNG(t, 4, 2)

	stamped, err := StampDPI(data)
	if err != nil {
		t.Fatalf("StampDPI がエラーを返した: %v", err)
	}

	idx := bytes.Index(stamped, []byte("pHYs"))
	if idx < 0 {
		t.Fatal("pHYs チャンクが埋め込まれていない")
	}

	payload := stamped[idx+4 : idx+4+9]
	x := binary.BigEndian.Uint32(payload[0:4])
	y := binary.BigEndian.Uint32(payload[4:8])
	if x != 11811 || y != 11811 {
		t.Errorf("解像度が 300 DPI 相当でない: x=%d, y=%d", x, y)
	}
	if payload[8] != 1 {
		t.Errorf("単位バイトが 1（メートル）でない: %d", payload[8])
	}

	// 埋め込み後も有効な PNG としてデコードできるはず
	cfg, err := png.DecodeConfig(bytes.NewReader(stamped))
	if err != nil {
		t.Fatalf("埋め込み後の PNG が壊れている: %v", err)
	}
	if cfg.Width != 4 || cfg.Height != 2 {
		t.Errorf("寸法が変わってしまった: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestStampDPIIdempotent(t *testing.T) {
	data := encodeTestPNG(t, 2, 2)

	once, err := StampDPI(data)
	if err != nil {
		t.Fatalf("1回目の StampDPI がエラーを返した: %v", err)
	}
	twice, err := StampDPI(once)
	if err != nil {
		t.Fatalf("2回目の StampDPI がエラーを返した: %v", err)
	}
	if bytes.Count(twice, []byte("pHYs")) != 1 {
		t.Error("pHYs チャンクは1つだけであるべき")
	}
}

func TestStampDPIRejectsNonPNG(t *testing.T) {
	if _, err := StampDPI([]byte("not a png")); err == nil {
		t.Error("PNG でないデータはエラーになるべき")
	}
}

func TestDimensions(t *testing.T) {
	data := encodeTestPNG(t, 7, 3)

	w, h, err := Dimensions(data)
	if err != nil {
		t.Fatalf("Dimensions がエラーを返した: %v", err)
	}
	if w != 7 || h != 3 {
		t.Errorf("寸法が一致しない: got %dx%d, want 7x3", w, h)
	}
}

func TestDimensionsRejectsNonPNG(t *testing.T) {
	if _, _, err := Dimensions([]byte("garbage")); err == nil {
		t.Error("PNG でないデータはエラーになるべき")
	}
}

func TestConfigDefaults(t *testing.T) {
	// RateInterval が 0 でも初期化がパニックしないことの確認です
	_, err := NewGeminiGenerator(context.Background(), Config{
		APIKey:       "dummy-key",
		Model:        "gemini-3-pro-image-preview",
		AspectRatio:  "16:9",
		ImageSize:    "4K",
		Timeout:      time.Second,
		RateInterval: 0,
	})
	if err != nil {
		t.Fatalf("有効な設定で初期化に失敗した: %v", err)
	}
}
