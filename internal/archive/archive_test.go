package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// diskWriter はローカルディスクに書き込むテスト用の OutputWriter です。
type diskWriter struct{}

func (diskWriter) Write(_ context.Context, path string, data io.Reader, _ string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s := NewStore(filepath.Join(root, "prompts"), filepath.Join(root, "outputs"), diskWriter{})
	s.now = func() time.Time {
		return time.Date(2024, 3, 15, 14, 22, 33, 0, time.UTC)
	}
	return s
}

func TestSavePromptAndReadPrompt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path, err := s.SavePrompt(ctx, "sunset-lake", "A sunset over a lake")
	if err != nil {
		t.Fatalf("SavePrompt がエラーを返した: %v", err)
	}
	if want := filepath.Join(s.promptsDir, "sunset-lake.txt"); path != want {
		t.Errorf("保存パスが想定と異なる: got %q, want %q", path, want)
	}

	text, err := s.ReadPrompt(ctx, "sunset-lake")
	if err != nil {
		t.Fatalf("ReadPrompt がエラーを返した: %v", err)
	}
	if text != "A sunset over a lake" {
		t.Errorf("プロンプト本文が一致しない: got %q", text)
	}
}

func TestReadPromptNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadPrompt(context.Background(), "missing")
	if !errors.Is(err, ErrPromptNotFound) {
		t.Errorf("ErrPromptNotFound が返るべき: got %v", err)
	}
}

func TestReadPromptUsesCache(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.SavePrompt(ctx, "cached", "original text"); err != nil {
		t.Fatalf("SavePrompt がエラーを返した: %v", err)
	}

	// ディスク上のファイルを消してもキャッシュから読めるはず
	if err := os.Remove(filepath.Join(s.promptsDir, "cached.txt")); err != nil {
		t.Fatalf("テスト準備に失敗: %v", err)
	}

	text, err := s.ReadPrompt(ctx, "cached")
	if err != nil {
		t.Fatalf("キャッシュ済みプロンプトの読み込みに失敗: %v", err)
	}
	if text != "original text" {
		t.Errorf("キャッシュの内容が一致しない: got %q", text)
	}
}

func TestSaveImageStampsTimestamp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path, ts, err := s.SaveImage(ctx, "sunset-lake", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("SaveImage がエラーを返した: %v", err)
	}
	if want := filepath.Join(s.outputsDir, "sunset-lake_20240315_142233.png"); path != want {
		t.Errorf("画像パスが想定と異なる: got %q, want %q", path, want)
	}
	if !ts.Equal(time.Date(2024, 3, 15, 14, 22, 33, 0, time.UTC)) {
		t.Errorf("タイムスタンプが固定時刻と一致しない: %v", ts)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("画像ファイルが書き込まれていない: %v", err)
	}
}

func TestSaveVersionedCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	working := filepath.Join(t.TempDir(), "poster_generated.png")
	ts := time.Date(2024, 3, 15, 14, 22, 33, 0, time.UTC)

	path, err := s.SaveVersionedCopy(ctx, working, []byte("png-bytes"), ts)
	if err != nil {
		t.Fatalf("SaveVersionedCopy がエラーを返した: %v", err)
	}
	wantSuffix := "poster_generated_20240315_142233.png"
	if filepath.Base(path) != wantSuffix {
		t.Errorf("バージョンコピー名が想定と異なる: got %q, want %q", filepath.Base(path), wantSuffix)
	}
}

func TestListPromptsSortedAscending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"zebra", "alpha", "middle"} {
		if _, err := s.SavePrompt(ctx, name, "text"); err != nil {
			t.Fatalf("SavePrompt がエラーを返した: %v", err)
		}
	}

	names, err := s.ListPrompts(ctx)
	if err != nil {
		t.Fatalf("ListPrompts がエラーを返した: %v", err)
	}
	want := []string{"alpha.txt", "middle.txt", "zebra.txt"}
	if len(names) != len(want) {
		t.Fatalf("件数が一致しない: got %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("並び順が想定と異なる: got %v, want %v", names, want)
			break
		}
	}
}

func TestListImagesSortedDescending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	files := []string{
		"alpha_20240101_000000.png",
		"beta_20240301_000000.png",
		"alpha_20240201_000000.png",
	}
	if err := os.MkdirAll(s.outputsDir, 0o755); err != nil {
		t.Fatalf("テスト準備に失敗: %v", err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(s.outputsDir, f), []byte("x"), 0o644); err != nil {
			t.Fatalf("テスト準備に失敗: %v", err)
		}
	}

	names, err := s.ListImages(ctx)
	if err != nil {
		t.Fatalf("ListImages がエラーを返した: %v", err)
	}
	want := []string{
		"beta_20240301_000000.png",
		"alpha_20240201_000000.png",
		"alpha_20240101_000000.png",
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("降順になっていない: got %v, want %v", names, want)
			break
		}
	}
}

func TestListPromptsEmptyDirectory(t *testing.T) {
	s := newTestStore(t)

	names, err := s.ListPrompts(context.Background())
	if err != nil {
		t.Fatalf("存在しないディレクトリでエラーになった: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("空の一覧が返るべき: got %v", names)
	}
}

func TestFindImage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := os.MkdirAll(s.outputsDir, 0o755); err != nil {
		t.Fatalf("テスト準備に失敗: %v", err)
	}
	for _, f := range []string{"sunset-lake_20240315_142233.png", "mountain_20240101_000000.png"} {
		if err := os.WriteFile(filepath.Join(s.outputsDir, f), []byte("x"), 0o644); err != nil {
			t.Fatalf("テスト準備に失敗: %v", err)
		}
	}

	t.Run("完全一致", func(t *testing.T) {
		name, ok := s.FindImage(ctx, "sunset-lake_20240315_142233.png")
		if !ok || name != "sunset-lake_20240315_142233.png" {
			t.Errorf("完全一致で見つかるべき: got %q, %v", name, ok)
		}
	})

	t.Run("大文字小文字を無視した部分一致", func(t *testing.T) {
		name, ok := s.FindImage(ctx, "SUNSET")
		if !ok || name != "sunset-lake_20240315_142233.png" {
			t.Errorf("部分一致で見つかるべき: got %q, %v", name, ok)
		}
	})

	t.Run("見つからない", func(t *testing.T) {
		if _, ok := s.FindImage(ctx, "nonexistent"); ok {
			t.Error("存在しない問い合わせで見つかってはいけない")
		}
	})

	t.Run("空の問い合わせ", func(t *testing.T) {
		if _, ok := s.FindImage(ctx, ""); ok {
			t.Error("空の問い合わせで見つかってはいけない")
		}
	})
}

func TestRecentImages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := os.MkdirAll(s.outputsDir, 0o755); err != nil {
		t.Fatalf("テスト準備に失敗: %v", err)
	}
	for _, f := range []string{
		"a_20240101_000000.png",
		"b_20240102_000000.png",
		"c_20240103_000000.png",
	} {
		if err := os.WriteFile(filepath.Join(s.outputsDir, f), []byte("x"), 0o644); err != nil {
			t.Fatalf("テスト準備に失敗: %v", err)
		}
	}

	names := s.RecentImages(ctx, 2)
	want := []string{"b_20240102_000000.png", "c_20240103_000000.png"}
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("新しい2件が昇順で返るべき: got %v, want %v", names, want)
	}
}
