// Package bulletin は箇条書き原稿をオフライン利用向けのJSONファイルとして書き出す。
package bulletin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hitoshi/newscast/internal/model"
)

// TimestampLayout はgenerated_atの書式。
const TimestampLayout = "2006-01-02 15:04:05"

// Document はファイルに書き出すJSONの形。
type Document struct {
	GeneratedAt string               `json:"generated_at"`
	Data        []model.BulletScript `json:"data"`
}

// Writer は箇条書き原稿を指定パスへアトミックに書き出す。
// 読み手は常に完全な旧版か新版のどちらかを読む。
type Writer struct {
	path string
	now  func() time.Time
}

// NewWriter はWriterを生成する。nowがnilの場合はtime.Nowを使う。
func NewWriter(path string, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{path: path, now: now}
}

// Path は書き出し先のパスを返す。
func (w *Writer) Path() string {
	return w.path
}

// Write は同じディレクトリの一時ファイルに書き込んでからrenameで置き換える。
func (w *Writer) Write(scripts []model.BulletScript) error {
	if scripts == nil {
		scripts = []model.BulletScript{}
	}
	doc := Document{
		GeneratedAt: w.now().Format(TimestampLayout),
		Data:        scripts,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("箇条書き原稿のエンコードに失敗: %w", err)
	}

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("一時ファイルへの書き込みに失敗: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("一時ファイルの同期に失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("パーミッションの設定に失敗: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("ファイルの置き換えに失敗: %w", err)
	}
	committed = true
	return nil
}

// Read は書き出し済みのファイルを読み込む。
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("箇条書き原稿のパースに失敗: %w", err)
	}
	return &doc, nil
}
