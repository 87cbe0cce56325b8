package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"kestrel/internal/exitcond"
	"kestrel/internal/logger"
)

// RuleProfile 是一组命名的退出规则。规则文本在加载时即解析，
// 解析不出任何条件的行保留原文但对求值无效。
type RuleProfile struct {
	Name        string   `yaml:"-"`
	Description string   `yaml:"description"`
	Rules       []string `yaml:"rules"`

	conditions []exitcond.Condition
}

// Conditions 返回该 profile 解析出的退出条件（副本）。
func (p RuleProfile) Conditions() []exitcond.Condition {
	out := make([]exitcond.Condition, len(p.conditions))
	copy(out, p.conditions)
	return out
}

type rulesFile struct {
	Profiles map[string]RuleProfile `yaml:"profiles"`
}

// RulesSnapshot 对外暴露的只读快照。
type RulesSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]RuleProfile
}

// ChangeListener 在规则文件变更时被调用。
type ChangeListener func(RulesSnapshot)

// RulesLoader 从 YAML 文件加载退出规则，并监听热更新。
type RulesLoader struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	snapshot  RulesSnapshot
	listeners []ChangeListener
	done      chan struct{}
}

// NewRulesLoader 读取规则文件；watch 为 true 时开始监听 FS 事件。
func NewRulesLoader(path string, watch bool) (*RulesLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("rules loader requires path")
	}
	l := &RulesLoader{path: path, done: make(chan struct{})}
	if err := l.reload(); err != nil {
		return nil, err
	}
	if !watch {
		return l, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// 监听目录而非文件本身：编辑器的原子保存会先删后建
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	l.watcher = watcher
	go l.watchLoop()
	return l, nil
}

func (l *RulesLoader) Close() error {
	close(l.done)
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// Snapshot 返回当前规则快照（深拷贝）。
func (l *RulesLoader) Snapshot() RulesSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSnapshot(l.snapshot)
}

// Profile 按名字取一组规则，找不到时 ok 为 false。
func (l *RulesLoader) Profile(name string) (RuleProfile, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.snapshot.Profiles[name]
	return p, ok
}

// Subscribe 注册监听器，并立即收到一次完整快照。
func (l *RulesLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := cloneSnapshot(l.snapshot)
	l.mu.Unlock()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("rules listener panic: %v", r)
			}
		}()
		fn(snap)
	}()
}

func (l *RulesLoader) watchLoop() {
	for {
		select {
		case <-l.done:
			return
		case evt, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(l.path) {
				continue
			}
			if !evt.Op.Has(fsnotify.Write) && !evt.Op.Has(fsnotify.Create) {
				continue
			}
			if err := l.reload(); err != nil {
				logger.Errorf("rules reload failed (%s): %v", evt.Name, err)
				continue
			}
			l.notify()
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("rules watcher error: %v", err)
		}
	}
}

func (l *RulesLoader) notify() {
	l.mu.RLock()
	snap := cloneSnapshot(l.snapshot)
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("rules listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func (l *RulesLoader) reload() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read rules file failed: %w", err)
	}
	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse rules file failed: %w", err)
	}
	normalized := make(map[string]RuleProfile, len(file.Profiles))
	for name, p := range file.Profiles {
		p.Name = name
		p.conditions = nil
		for _, text := range p.Rules {
			p.conditions = append(p.conditions, exitcond.Parse(text)...)
		}
		normalized[name] = p
	}
	l.mu.Lock()
	l.snapshot = RulesSnapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: normalized,
	}
	l.mu.Unlock()
	logger.Infof("Rules loader reloaded %d profiles from %s", len(normalized), filepath.Base(l.path))
	return nil
}

func cloneSnapshot(src RulesSnapshot) RulesSnapshot {
	dst := RulesSnapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Profiles: make(map[string]RuleProfile, len(src.Profiles)),
	}
	for name, p := range src.Profiles {
		dst.Profiles[name] = p
	}
	return dst
}
