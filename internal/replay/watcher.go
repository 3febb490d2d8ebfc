package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tradestat/internal/logger"
	symbolpkg "tradestat/internal/pkg/symbol"

	"github.com/fsnotify/fsnotify"
)

const importDebounce = 500 * time.Millisecond

// Watcher 监听导入目录，发现新的或更新的 <SYMBOL>.jsonl 文件后
// 自动校验并导入到本地成交库。导出工具经常分多次写入同一文件，
// 因此按文件去抖合并写事件，稳定后再整文件重新导入。
type Watcher struct {
	dir    string
	source *JSONLSource
	store  *Store

	mu     sync.Mutex
	mtimes map[string]time.Time
	timers map[string]*time.Timer
}

func NewWatcher(dir string, store *Store) (*Watcher, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("导入目录不能为空")
	}
	source, err := NewJSONLSource(dir)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:    dir,
		source: source,
		store:  store,
		mtimes: make(map[string]time.Time),
		timers: make(map[string]*time.Timer),
	}, nil
}

// Run 阻塞运行直到 ctx 取消。启动时先全量导入一遍目录内容。
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("创建导入目录失败: %w", err)
	}
	if err := w.importAll(ctx); err != nil {
		logger.Errorf("导入目录初始扫描失败: %v", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("监听导入目录失败: %w", err)
	}
	logger.Infof("成交导入监听已启动 dir=%s", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !evt.Op.Has(fsnotify.Create) && !evt.Op.Has(fsnotify.Write) {
				continue
			}
			if strings.ToLower(filepath.Ext(evt.Name)) != ".jsonl" {
				continue
			}
			w.schedule(ctx, evt.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("文件监听错误: %v", err)
		}
	}
}

// schedule 为路径设置/重置去抖定时器。
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(importDebounce)
		return
	}
	w.timers[path] = time.AfterFunc(importDebounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := w.importFile(ctx, path); err != nil {
			logger.Errorf("导入 %s 失败: %v", filepath.Base(path), err)
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) importAll(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".jsonl" {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if err := w.importFile(ctx, path); err != nil {
			logger.Errorf("导入 %s 失败: %v", entry.Name(), err)
		}
	}
	return nil
}

func (w *Watcher) importFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	prev, seen := w.mtimes[path]
	w.mu.Unlock()
	if seen && !info.ModTime().After(prev) {
		return nil
	}

	symbol := symbolpkg.Normalize(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	events, err := w.source.Fetch(ctx, FetchRequest{Symbol: symbol})
	if err != nil {
		return err
	}
	if _, err := w.store.ReplaceFills(ctx, symbol, events); err != nil {
		return err
	}

	w.mu.Lock()
	w.mtimes[path] = info.ModTime()
	w.mu.Unlock()
	logger.Infof("成交文件导入完成 symbol=%s count=%d", symbol, len(events))
	return nil
}
