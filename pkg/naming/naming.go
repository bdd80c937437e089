package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultBaseName は、プロンプトから有効な名前を導出できなかった場合の
	// フォールバック名です。
	DefaultBaseName = "image"

	// TimestampLayout は、画像ファイル名に埋め込むタイムスタンプの書式です。
	// 例: 20240315_142233
	TimestampLayout = "20060102_150405"

	// maxTokenLen は、ベース名を構成する各トークンの最大文字数です。
	maxTokenLen = 10

	// maxNameTokens は、プロンプトの先頭から名前に採用する単語数です。
	maxNameTokens = 3

	promptExt = ".txt"
	imageExt  = ".png"
)

// knownImageExts は、タイムスタンプ解析の前に取り除く既知の画像拡張子です。
var knownImageExts = []string{".png", ".jpg", ".jpeg", ".webp"}

// DeriveName は、プロンプト本文からファイル名のベースとなる短い名前を導出します。
// 先頭3単語を小文字化・英数字のみに整形し、各単語を最大10文字に切り詰めて
// ハイフンで連結します。有効な文字が残らない場合は DefaultBaseName を返します。
// 同じ入力からは常に同じ名前が得られます。
func DeriveName(promptText string) string {
	fields := strings.Fields(promptText)
	if len(fields) > maxNameTokens {
		fields = fields[:maxNameTokens]
	}

	tokens := make([]string, 0, len(fields))
	for _, w := range fields {
		var b strings.Builder
		for _, r := range strings.ToLower(w) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		token := b.String()
		if token == "" {
			continue
		}
		if runes := []rune(token); len(runes) > maxTokenLen {
			token = string(runes[:maxTokenLen])
		}
		tokens = append(tokens, token)
	}

	name := strings.Join(tokens, "-")
	if name == "" {
		return DefaultBaseName
	}
	return name
}

// Encode は、ベース名とタイムスタンプから画像ファイル名を組み立てます。
// Decode と対になる正方向の変換です。
func Encode(name string, ts time.Time) string {
	return fmt.Sprintf("%s_%s%s", name, ts.Format(TimestampLayout), imageExt)
}

// Decode は、画像ファイル名からベース名とタイムスタンプを復元します。
// タイムスタンプが欠落・不正な場合はエラーを返す厳格なコーデックです。
// 寛容な解釈が必要な場面では LenientSplit を使用してください。
func Decode(filename string) (string, time.Time, error) {
	stem, ok := trimImageExt(filename)
	if !ok {
		return "", time.Time{}, fmt.Errorf("naming: 既知の画像拡張子ではありません: %s", filename)
	}

	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return "", time.Time{}, fmt.Errorf("naming: タイムスタンプが埋め込まれていません: %s", filename)
	}

	datePart := parts[len(parts)-2]
	timePart := parts[len(parts)-1]
	if !isDigits(datePart) || len(datePart) != 8 || !isDigits(timePart) || len(timePart) != 6 {
		return "", time.Time{}, fmt.Errorf("naming: タイムスタンプの形式が不正です: %s", filename)
	}

	ts, err := time.Parse(TimestampLayout, datePart+"_"+timePart)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("naming: タイムスタンプを解釈できません: %w", err)
	}

	name := strings.Join(parts[:len(parts)-2], "_")
	if name == "" {
		return "", time.Time{}, fmt.Errorf("naming: ベース名が空です: %s", filename)
	}
	return name, ts, nil
}

// LenientSplit は、既存ファイルとの互換のための寛容なタイムスタンプ分割です。
// 拡張子を除去したあと `_` で分割し、末尾2セグメントをタイムスタンプとして
// 解釈します。セグメントが足りない場合はステム全体をベース名とし、
// タイムスタンプとして有効な数字が得られない場合は引数 now で代用します
// （ギャラリーの日付欄を埋めるためのレガシー挙動です）。
func LenientSplit(filename string, now time.Time) (string, time.Time) {
	stem, _ := trimImageExt(filename)

	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return stem, now
	}

	base := strings.Join(parts[:len(parts)-2], "_")
	datePart := parts[len(parts)-2]
	timePart := parts[len(parts)-1]

	if isDigits(datePart) && len(datePart) == 8 && isDigits(timePart) && len(timePart) == 6 {
		if ts, err := time.Parse(TimestampLayout, datePart+"_"+timePart); err == nil {
			return base, ts
		}
	}
	return base, now
}

// MatchPrompt は、画像ファイル名に対応するプロンプトファイルを探します。
// まずタイムスタンプを取り除いたベース名との完全一致を優先し、
// 見つからなければ「プロンプト名がステム全体の部分文字列である」ものに
// フォールバックします。最初に一致したものが勝つため、呼び出し側は
// promptFiles を昇順ソートして渡すことで結果を決定的にできます。
func MatchPrompt(imageFilename string, promptFiles []string) (string, bool) {
	stem, _ := trimImageExt(imageFilename)
	base, _ := LenientSplit(imageFilename, time.Time{})

	if base != "" {
		for _, pf := range promptFiles {
			if strings.TrimSuffix(pf, promptExt) == base {
				return pf, true
			}
		}
	}

	for _, pf := range promptFiles {
		name := strings.TrimSuffix(pf, promptExt)
		if name != "" && strings.Contains(stem, name) {
			return pf, true
		}
	}
	return "", false
}

// TitleCase は、画像ファイル名から人が読めるタイトルを生成します。
// 拡張子とタイムスタンプを取り除き、`-` と `_` を空白に置き換えたうえで
// 各単語の先頭を大文字化します。
func TitleCase(filename string) string {
	base, _ := LenientSplit(filename, time.Time{})
	if base == "" {
		base, _ = trimImageExt(filename)
	}

	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")

	words := strings.Fields(base)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// SanitizeBaseName は、利用者が指定したファイル名をベース名として整えます。
// 画像拡張子を取り除き、空白をハイフンに置き換えます。
func SanitizeBaseName(filename string) string {
	if stem, ok := trimImageExt(filename); ok {
		filename = stem
	}
	return strings.ReplaceAll(strings.TrimSpace(filename), " ", "-")
}

// trimImageExt は、既知の画像拡張子を取り除いたステムと、
// 拡張子が既知であったかどうかを返します。
func trimImageExt(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, known := range knownImageExts {
		if ext == known {
			return filename[:len(filename)-len(ext)], true
		}
	}
	return filename, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
