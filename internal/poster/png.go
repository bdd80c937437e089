package poster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image/png"
)

// 300 DPI をメートル単位に換算した値なのだ（300 / 0.0254 ≒ 11811）。
const pixelsPerMeter300DPI = 11811

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

// StampDPI は PNG データに印刷解像度 300 DPI の pHYs チャンクを埋め込むのだ。
// 既存の pHYs チャンクがあれば置き換え、なければ IHDR の直後に挿入するのだ。
func StampDPI(data []byte) ([]byte, error) {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return nil, fmt.Errorf("PNG シグネチャが見つかりません")
	}

	phys := buildPhysChunk()

	out := make([]byte, 0, len(data)+len(phys))
	out = append(out, pngSignature...)

	pos := len(pngSignature)
	inserted := false
	for pos < len(data) {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("PNG チャンクヘッダが途中で切れています")
		}
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		chunkType := string(data[pos+4 : pos+8])
		end := pos + 8 + length + 4
		if end > len(data) {
			return nil, fmt.Errorf("PNG チャンク %s が途中で切れています", chunkType)
		}

		switch chunkType {
		case "pHYs":
			// 既存の解像度情報は差し替えるのだ
			if !inserted {
				out = append(out, phys...)
				inserted = true
			}
		case "IHDR":
			out = append(out, data[pos:end]...)
			if !inserted {
				out = append(out, phys...)
				inserted = true
			}
		default:
			out = append(out, data[pos:end]...)
		}
		pos = end
	}

	if !inserted {
		return nil, fmt.Errorf("IHDR チャンクが見つかりません")
	}
	return out, nil
}

// Dimensions は PNG データをデコードせずにヘッダから幅と高さを読み取るのだ。
func Dimensions(data []byte) (int, int, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("PNG ヘッダの解析に失敗しました: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func buildPhysChunk() []byte {
	payload := make([]byte, 9)
	binary.BigEndian.PutUint32(payload[0:4], pixelsPerMeter300DPI)
	binary.BigEndian.PutUint32(payload[4:8], pixelsPerMeter300DPI)
	payload[8] = 1 // 単位はメートル

	chunk := make([]byte, 0, 4+4+9+4)
	chunk = binary.BigEndian.AppendUint32(chunk, 9)
	chunk = append(chunk, []byte("pHYs")...)
	chunk = append(chunk, payload...)
	crc := crc32.ChecksumIEEE(chunk[4:])
	chunk = binary.BigEndian.AppendUint32(chunk, crc)
	return chunk
}
