package gallery

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-poster-kit/internal/archive"
	"github.com/shouni/go-poster-kit/pkg/naming"
)

//go:embed gallery.html
var galleryTemplate string

const galleryMime = "text/html; charset=utf-8"

// Entry はギャラリーの1枚の画像カードを表すのだ。
// JSON のフィールド名はそのまま HTML 内のスクリプトに渡る契約なのだ。
type Entry struct {
	Filename   string `json:"filename"`
	PromptFile string `json:"promptFile"`
	Title      string `json:"title"`
	Date       string `json:"date"`
}

// Build は画像とプロンプトのファイル名一覧からギャラリーエントリを組み立てるのだ。
// 対応するプロンプトが見つからない画像は黙ってスキップするのだ。
// 入出力だけで決まる純粋関数なので、同じ入力からは常に同じ結果が出るのだ。
func Build(images, prompts []string, now time.Time) []Entry {
	sorted := make([]string, len(images))
	copy(sorted, images)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))

	promptList := make([]string, len(prompts))
	copy(promptList, prompts)
	sort.Strings(promptList)

	var entries []Entry
	for _, img := range sorted {
		promptFile, ok := naming.MatchPrompt(img, promptList)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Filename:   img,
			PromptFile: promptFile,
			Title:      naming.TitleCase(img),
			Date:       entryDate(img, now),
		})
	}
	return entries
}

// entryDate はファイル名のタイムスタンプから表示用の日付を作るのだ。
// タイムスタンプが読めないファイルは現在日付で代用するのだ。
func entryDate(filename string, now time.Time) string {
	_, ts := naming.LenientSplit(filename, now)
	return ts.Format("2006-01-02")
}

// Renderer はアーカイブを走査して静的なギャラリー HTML を書き出すのだ。
type Renderer struct {
	store  *archive.Store
	writer archive.OutputWriter
	output string
	now    func() time.Time
}

// NewRenderer は出力先パスを指定して Renderer を生成するのだ。
func NewRenderer(store *archive.Store, writer archive.OutputWriter, output string) *Renderer {
	return &Renderer{
		store:  store,
		writer: writer,
		output: output,
		now:    time.Now,
	}
}

// Render は画像とプロンプトの一覧を並列で取得し、ギャラリー HTML を生成して
// 出力先に書き込むのだ。エントリ件数を返すのだ。
func (r *Renderer) Render(ctx context.Context) (int, error) {
	var images, prompts []string

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		images, err = r.store.ListImages(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		prompts, err = r.store.ListPrompts(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return 0, fmt.Errorf("アーカイブの走査に失敗しました: %w", err)
	}

	entries := Build(images, prompts, r.now())

	html, err := RenderHTML(entries)
	if err != nil {
		return 0, err
	}

	if err := r.writer.Write(ctx, r.output, bytes.NewReader(html), galleryMime); err != nil {
		return 0, fmt.Errorf("ギャラリーの書き込みに失敗しました %s: %w", r.output, err)
	}

	slog.Info("ギャラリーを生成したのだ",
		slog.Int("entries", len(entries)),
		slog.String("output", r.output),
	)
	return len(entries), nil
}

// RenderHTML はエントリ一覧を埋め込みテンプレートに流し込んで HTML を生成するのだ。
func RenderHTML(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("ギャラリーデータの JSON 変換に失敗しました: %w", err)
	}

	tmpl, err := template.New("gallery").Parse(galleryTemplate)
	if err != nil {
		return nil, fmt.Errorf("ギャラリーテンプレートの解析に失敗しました: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		// スクリプトに生の JSON として渡すため template.JS でエスケープを抑止するのだ
		"ImageData": template.JS(data),
	}); err != nil {
		return nil, fmt.Errorf("ギャラリーテンプレートの描画に失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}
