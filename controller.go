package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEmptySelection = errors.New("nothing is selected")
	ErrInvalidSlot    = errors.New("time range is not on the grid")
	ErrUnknownEvent   = errors.New("event not found")
)

type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Notice is a one-shot message shown on the next render.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Controller wires user actions to the session, the selection and the
// clipboard, and builds the week view.
type Controller struct {
	session   *Session
	selection *Selection
	overlays  []CalendarProvider
	clipboard Clipboard
	view      ViewConfig
	loc       *time.Location
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	notice   *Notice
	overlaid map[string]CalendarEvent
}

type ControllerOptions struct {
	Session   *Session
	Selection *Selection
	Overlays  []CalendarProvider
	Clipboard Clipboard
	Config    *Config
	Logger    *zap.Logger
}

func NewController(opts ControllerOptions) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		session:   opts.Session,
		selection: opts.Selection,
		overlays:  opts.Overlays,
		clipboard: opts.Clipboard,
		view:      opts.Config.View,
		loc:       opts.Config.Location(),
		timeout:   opts.Config.RequestTimeout.Duration,
		log:       log.Named("controller"),
		now:       time.Now,
		overlaid:  make(map[string]CalendarEvent),
	}
}

func (c *Controller) notify(kind NoticeKind, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = &Notice{Kind: kind, Text: text}
}

// TakeNotice returns the pending notice and forgets it.
func (c *Controller) TakeNotice() *Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.notice
	c.notice = nil
	return n
}

// Login returns the consent URL, or reports why login cannot start.
func (c *Controller) Login() (string, error) {
	consentURL, err := c.session.BeginLogin()
	if err != nil {
		c.log.Warn("login refused", zap.Error(err))
		c.notify(NoticeError, loginMessage(err))
		return "", err
	}
	return consentURL, nil
}

func (c *Controller) Callback(ctx context.Context, callback url.Values) error {
	err := c.session.HandleCallback(ctx, callback)
	switch {
	case err == nil:
	case errors.Is(err, ErrStaleAttempt), errors.Is(err, ErrSuperseded):
		c.log.Info("ignored outdated login callback", zap.Error(err))
	default:
		c.notify(NoticeError, loginMessage(err))
	}
	return err
}

// Logout resets the session and everything the user selected.
func (c *Controller) Logout(ctx context.Context) {
	c.session.Logout(ctx)
	c.selection.Clear()
}

func (c *Controller) SelectEvent(id string) error {
	event, ok := c.session.Event(id)
	if !ok {
		c.mu.Lock()
		event, ok = c.overlaid[id]
		c.mu.Unlock()
	}
	if !ok {
		c.notify(NoticeError, "予定が見つかりません。")
		return fmt.Errorf("%w: %s", ErrUnknownEvent, id)
	}
	c.selection.Select(event.Start, event.End)
	return nil
}

func (c *Controller) SelectSlot(start, end time.Time) error {
	if err := c.validateSlot(start, end); err != nil {
		c.notify(NoticeError, "選択された時間帯が不正です。")
		return err
	}
	c.selection.Select(start, end)
	return nil
}

// validateSlot accepts only ranges the grid could have produced: aligned to
// slot boundaries, within the visible hours of a single day.
func (c *Controller) validateSlot(start, end time.Time) error {
	start, end = start.In(c.loc), end.In(c.loc)
	if !end.After(start) {
		return fmt.Errorf("%w: end is not after start", ErrInvalidSlot)
	}
	step := time.Duration(c.view.SlotMinutes) * time.Minute
	day := startOfDay(start)
	first := day.Add(time.Duration(c.view.DayStartHour) * time.Hour)
	last := day.Add(time.Duration(c.view.DayEndHour) * time.Hour)
	if start.Before(first) || end.After(last) {
		return fmt.Errorf("%w: outside visible hours", ErrInvalidSlot)
	}
	if start.Sub(first)%step != 0 || end.Sub(first)%step != 0 {
		return fmt.Errorf("%w: not aligned to %s", ErrInvalidSlot, step)
	}
	return nil
}

func (c *Controller) ClearSelection() {
	c.selection.Clear()
}

// Copy puts the serialized selection on the clipboard.
func (c *Controller) Copy() error {
	if c.selection.Len() == 0 {
		c.notify(NoticeError, "日程が選択されていません。")
		return ErrEmptySelection
	}
	if err := c.clipboard.WriteAll(c.selection.Serialize()); err != nil {
		c.log.Error("clipboard write failed", zap.Error(err))
		c.notify(NoticeError, "コピーに失敗しました: "+err.Error())
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	c.notify(NoticeInfo, "スケジュールをクリップボードにコピーしました！")
	return nil
}

// loadOverlays reads every overlay calendar for the visible range. A failing
// source contributes nothing.
func (c *Controller) loadOverlays(ctx context.Context, from, to time.Time) []CalendarEvent {
	var all []CalendarEvent
	for _, p := range c.overlays {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		events, err := p.ListEvents(callCtx, from, to)
		cancel()
		if err != nil {
			c.log.Warn("overlay calendar failed", zap.String("source", p.Name()), zap.Error(err))
			continue
		}
		all = append(all, events...)
	}

	cache := make(map[string]CalendarEvent, len(all))
	for _, e := range all {
		cache[e.ID] = e
	}
	c.mu.Lock()
	c.overlaid = cache
	c.mu.Unlock()
	return all
}

func loginMessage(err error) string {
	var consentErr *ConsentError
	switch {
	case errors.Is(err, ErrProviderNotReady):
		return "認証システムを読み込み中です。しばらくしてから再度お試しください。"
	case errors.Is(err, ErrMissingClientID):
		return "client_id が設定されていません。.nittei.toml または NITTEI_CLIENT_ID を設定してください。"
	case errors.Is(err, ErrProviderUnavailable):
		return "認証システムの初期化に失敗しました。アプリを再起動してください。"
	case errors.Is(err, ErrAlreadyLoggedIn):
		return "すでにログインしています。"
	case errors.As(err, &consentErr):
		return fmt.Sprintf("ログインエラー: %s\n%s", consentErr.Code, consentErr.Description)
	}
	return "ログインに失敗しました: " + err.Error()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
