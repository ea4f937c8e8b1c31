package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chromedp/chromedp"
)

// browserSession owns a Chrome process and the single tab the sync runs in.
type browserSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// launchBrowser starts Chrome with the automation fingerprint suppressed and
// the window maximized. The browser is started eagerly so a missing binary
// fails here rather than at the first page load.
func launchBrowser(parent context.Context, common *Common, cfg appConfig) (*browserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.headless),
		chromedp.Flag("disable-gpu", cfg.headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("start-maximized", true),
	)
	if os.Geteuid() == 0 {
		// chrome refuses to start its sandbox as root
		opts = append(opts, chromedp.NoSandbox)
	}
	if path := strings.TrimSpace(cfg.chromePath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			common.logger.Debug("chromedp: " + fmt.Sprintf(format, args...))
		}),
	)

	if err := chromedp.Run(ctx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("could not start chrome: %w", err)
	}
	common.logger.Debug("browser launched", "headless", cfg.headless)

	return &browserSession{
		ctx:         ctx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Close shuts down the tab and then the Chrome process.
func (b *browserSession) Close() {
	b.cancelTab()
	b.cancelAlloc()
}
