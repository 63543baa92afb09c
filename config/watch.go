package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig 热更新配置
type WatchConfig struct {
	Enabled      bool          // 是否启用热更新
	CooldownTime time.Duration // 冷却时间，避免频繁更新
}

// DefaultWatchConfig 默认热更新配置
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Enabled:      true,
		CooldownTime: 5 * time.Second,
	}
}

// Watcher 监听配置文件变化，重新加载并回调。
// 策略参数在一次运行内不可变，回调方应在下一个评估周期整体替换配置快照，
// 而不是就地修改正在使用的参数。
type Watcher struct {
	config     WatchConfig
	configPath string
	watcher    *fsnotify.Watcher
	onUpdate   func(AppConfig)
	onError    func(error)
	lastReload time.Time
	mu         sync.Mutex
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewWatcher 创建配置监听器
func NewWatcher(configPath string, cfg WatchConfig, onUpdate func(AppConfig)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		config:     cfg,
		configPath: configPath,
		watcher:    fw,
		onUpdate:   onUpdate,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// SetErrorHandler 设置加载失败时的回调，默认静默忽略并继续监听
func (w *Watcher) SetErrorHandler(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Start 启动监听
func (w *Watcher) Start(ctx context.Context) error {
	if !w.config.Enabled {
		return nil
	}
	if err := w.watcher.Add(w.configPath); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}
	go w.watch(ctx)
	return nil
}

// Stop 停止监听
func (w *Watcher) Stop() error {
	if !w.config.Enabled {
		if w.watcher != nil {
			return w.watcher.Close()
		}
		return nil
	}

	select {
	case <-w.stopChan:
		// 已经停止
	default:
		close(w.stopChan)
	}

	// 等待 goroutine 结束（带超时）
	select {
	case <-w.doneChan:
	case <-time.After(1 * time.Second):
		// 超时，可能 watch goroutine 没有启动
	}

	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// watch 监听文件变化
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// 只处理写入和创建事件（编辑器保存常以 rename+create 落盘）
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.handleChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

// handleChange 处理配置变化
func (w *Watcher) handleChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 检查冷却时间
	if time.Since(w.lastReload) < w.config.CooldownTime {
		return
	}

	cfg, err := LoadWithEnvOverrides(w.configPath)
	if err != nil {
		// 坏配置不替换现有快照，继续用旧参数跑
		w.reportErrorLocked(err)
		return
	}
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
	w.lastReload = time.Now()
}

func (w *Watcher) reportError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reportErrorLocked(err)
}

func (w *Watcher) reportErrorLocked(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

// LastReloadTime 获取最后重载时间
func (w *Watcher) LastReloadTime() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReload
}
