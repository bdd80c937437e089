package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-poster-kit/pkg/naming"
)

// ErrPromptNotFound は、指定された名前のプロンプトが存在しない場合に返されるのだ。
var ErrPromptNotFound = errors.New("プロンプトが見つかりません")

const (
	promptExt = ".txt"
	imageExt  = ".png"

	promptMime = "text/plain; charset=utf-8"
	imageMime  = "image/png"
)

// OutputWriter はデータを外部ストレージに保存するためのインターフェースなのだ。
// go-remote-io の OutputWriter がそのまま実装を満たすのだ。
type OutputWriter interface {
	Write(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Store は、プロンプトストア（名前 → 本文）と画像ストア（名前+タイムスタンプ → PNG）の
// 2つの論理ストアを束ねるプロンプトアーカイブなのだ。
// レコードは作成後に不変で、このシステムから削除されることはないのだ。
type Store struct {
	promptsDir string
	outputsDir string
	writer     OutputWriter

	// promptCache はプロンプト本文の読み取りキャッシュなのだ。
	// プロンプトレコードは不変なので、キャッシュが古くなる心配はないのだ。
	promptCache *cache.Cache

	// now はテストで時刻を固定できるように差し替え可能にしてあるのだ。
	now func() time.Time
}

// NewStore は指定ディレクトリを根とする Store を生成するのだ。
func NewStore(promptsDir, outputsDir string, writer OutputWriter) *Store {
	return &Store{
		promptsDir:  promptsDir,
		outputsDir:  outputsDir,
		writer:      writer,
		promptCache: cache.New(30*time.Minute, 1*time.Hour),
		now:         time.Now,
	}
}

// SavePrompt はプロンプト本文を prompts/<name>.txt に書き込むのだ。
// 既存の同名レコードは上書きされる（バージョン管理はしない）のだ。
func (s *Store) SavePrompt(ctx context.Context, name, text string) (string, error) {
	path := filepath.Join(s.promptsDir, name+promptExt)
	if err := s.writer.Write(ctx, path, strings.NewReader(text), promptMime); err != nil {
		return "", fmt.Errorf("プロンプトの書き込みに失敗しました %s: %w", path, err)
	}
	s.promptCache.Set(name, text, cache.DefaultExpiration)
	return path, nil
}

// SaveImage は現在時刻を刻印し、画像データを outputs/<name>_<timestamp>.png に
// 書き込むのだ。書き込んだフルパスとタイムスタンプを返すのだ。
// 同名・同秒の衝突は後勝ちの上書きになるのだ。
func (s *Store) SaveImage(ctx context.Context, name string, data []byte) (string, time.Time, error) {
	ts := s.now()
	path := filepath.Join(s.outputsDir, naming.Encode(name, ts))
	if err := s.writer.Write(ctx, path, bytes.NewReader(data), imageMime); err != nil {
		return "", time.Time{}, fmt.Errorf("画像の書き込みに失敗しました %s: %w", path, err)
	}
	return path, ts, nil
}

// SaveVersionedCopy は、作業用ファイルの隣にタイムスタンプ付きの
// 二次コピーを書き込むのだ（スタンドアロンのポスター生成フロー用）。
func (s *Store) SaveVersionedCopy(ctx context.Context, workingPath string, data []byte, ts time.Time) (string, error) {
	ext := filepath.Ext(workingPath)
	stem := strings.TrimSuffix(workingPath, ext)
	path := fmt.Sprintf("%s_%s%s", stem, ts.Format(naming.TimestampLayout), ext)
	if err := s.writer.Write(ctx, path, bytes.NewReader(data), imageMime); err != nil {
		return "", fmt.Errorf("バージョンコピーの書き込みに失敗しました %s: %w", path, err)
	}
	return path, nil
}

// ListPrompts はプロンプトファイル名（.txt）を昇順で返すのだ。
// ディレクトリの列挙順は環境依存なので、決定性のためにここでソートするのだ。
func (s *Store) ListPrompts(ctx context.Context) ([]string, error) {
	names, err := listByExt(s.promptsDir, promptExt)
	if err != nil {
		return nil, fmt.Errorf("プロンプト一覧の取得に失敗しました: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// ListImages は画像ファイル名（.png）をファイル名の降順で返すのだ。
// タイムスタンプは辞書順に整列するため、先頭が最新になるのだ。
// この並び順はギャラリーの表示順として利用者に見える契約なのだ。
func (s *Store) ListImages(ctx context.Context) ([]string, error) {
	names, err := listByExt(s.outputsDir, imageExt)
	if err != nil {
		return nil, fmt.Errorf("画像一覧の取得に失敗しました: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// ReadPrompt は指定された名前のプロンプト本文を返すのだ。
// 存在しない場合は ErrPromptNotFound を包んだエラーを返すのだ。
func (s *Store) ReadPrompt(ctx context.Context, name string) (string, error) {
	if cached, ok := s.promptCache.Get(name); ok {
		return cached.(string), nil
	}

	path := filepath.Join(s.promptsDir, name+promptExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrPromptNotFound, name)
		}
		return "", fmt.Errorf("プロンプトの読み込みに失敗しました %s: %w", path, err)
	}

	text := string(data)
	s.promptCache.Set(name, text, cache.DefaultExpiration)
	return text, nil
}

// FindImage は画像ストアから問い合わせに合うファイル名を探すのだ。
// まず完全一致、次にファイル名昇順での大文字小文字を無視した部分一致を試すのだ。
func (s *Store) FindImage(ctx context.Context, query string) (string, bool) {
	if query == "" {
		return "", false
	}

	if _, err := os.Stat(filepath.Join(s.outputsDir, query)); err == nil {
		return query, true
	}

	names, err := listByExt(s.outputsDir, imageExt)
	if err != nil {
		return "", false
	}
	sort.Strings(names)

	lowered := strings.ToLower(query)
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), lowered) {
			return name, true
		}
	}
	return "", false
}

// RecentImages は画像ファイル名のうち新しい方から最大 n 件を昇順で返すのだ。
// 見つからない画像を報告するときの候補一覧に使うのだ。
func (s *Store) RecentImages(ctx context.Context, n int) []string {
	names, err := listByExt(s.outputsDir, imageExt)
	if err != nil {
		return nil
	}
	sort.Strings(names)
	if len(names) > n {
		names = names[len(names)-n:]
	}
	return names
}

// listByExt はディレクトリ直下から指定拡張子のファイル名を集めるのだ。
// ディレクトリがまだ存在しない場合は空の一覧を返すのだ。
func listByExt(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
