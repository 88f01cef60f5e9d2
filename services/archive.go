package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"sion-backend/models"
)

// TickArchive - 틱 결과를 시간 단위로 회전하는 zstd JSONL 파일에 기록
//
// 파일 이름: <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst
type TickArchive struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewTickArchive - 디렉터리는 첫 기록 시 만든다
func NewTickArchive(baseDir, prefix string) *TickArchive {
	return &TickArchive{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

// Write - 한 줄 기록 후 flush
func (a *TickArchive) Write(res models.TickResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	hour := a.now().UTC().Format("2006-01-02-15")
	if hour != a.curHour {
		if err := a.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if _, err := a.w.Write(b); err != nil {
		return err
	}
	if err := a.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := a.w.Flush(); err != nil {
		return err
	}
	return a.enc.Flush()
}

// Close - 현재 파일 닫기
func (a *TickArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *TickArchive) rotateLocked(hour string) error {
	if err := a.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(a.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(a.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	a.f = f
	a.enc = enc
	a.w = bufio.NewWriterSize(enc, 64*1024)
	a.curHour = hour
	return nil
}

func (a *TickArchive) closeLocked() error {
	var err error
	if a.w != nil {
		_ = a.w.Flush()
	}
	if a.enc != nil {
		err = a.enc.Close()
		a.enc = nil
	}
	if a.f != nil {
		_ = a.f.Close()
		a.f = nil
	}
	a.w = nil
	a.curHour = ""
	return err
}

func (a *TickArchive) pathForHour(hour string) string {
	return filepath.Join(a.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", a.prefix, hour))
}

// ListArchiveFiles - prefix 로 시작하는 아카이브를 이름(시간) 순으로
func ListArchiveFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadArchive - zstd JSONL 을 한 줄씩 디코드해 fn 에 넘긴다
func ReadArchive(r io.Reader, fn func(models.TickResult) error) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var res models.TickResult
		if err := json.Unmarshal(sc.Bytes(), &res); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(res); err != nil {
			return err
		}
	}
	return sc.Err()
}
