package main

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	loginWaitTimeout = 20 * time.Second
	tableWaitTimeout = 30 * time.Second
)

// element selectors on the Kronos login and schedule pages
const (
	selUsername      = `#username`
	selPassword      = `#password`
	selLoginButton   = `#login-button`
	selMFACode       = `#mfaCode`
	selVerifyButton  = `#verify-mfa-button`
	selScheduleTable = `.schedule-table`
)

type kronosPortal struct {
	*Common
	session *browserSession
	url     string
	user    string
	pass    string
}

func newKronosPortal(common *Common, session *browserSession, cfg appConfig) *kronosPortal {
	return &kronosPortal{
		Common:  common,
		session: session,
		url:     cfg.portalURL,
		user:    cfg.username,
		pass:    cfg.password,
	}
}

// runWithin runs actions in the browser tab, failing once timeout elapses.
func (k *kronosPortal) runWithin(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(k.session.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// login submits the username and password, then blocks on codes for the
// one-time MFA code and submits it. The MFA prompt itself has no deadline.
func (k *kronosPortal) login(codes codeProvider) error {
	k.reporter.status("🌐", "Logging into Kronos...")
	k.logger.Debug("navigating to portal", "url", k.url)

	if err := chromedp.Run(k.session.ctx, chromedp.Navigate(k.url)); err != nil {
		return fmt.Errorf("could not open %q: %w", k.url, err)
	}

	err := k.runWithin(loginWaitTimeout,
		chromedp.WaitVisible(selUsername, chromedp.ByQuery),
		chromedp.SendKeys(selUsername, k.user, chromedp.ByQuery),
		chromedp.SendKeys(selPassword, k.pass, chromedp.ByQuery),
		chromedp.Click(selLoginButton, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}

	if err := k.runWithin(loginWaitTimeout, chromedp.WaitVisible(selMFACode, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for MFA field: %w", err)
	}

	code, err := codes.mfaCode()
	if err != nil {
		return fmt.Errorf("reading MFA code: %w", err)
	}

	err = k.runWithin(loginWaitTimeout,
		chromedp.SendKeys(selMFACode, code, chromedp.ByQuery),
		chromedp.Click(selVerifyButton, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("submitting MFA code: %w", err)
	}
	k.logger.Info("Submitted MFA code")
	return nil
}

// fetchScheduleRows waits for the schedule table, snapshots its markup and
// splits it into raw rows.
func (k *kronosPortal) fetchScheduleRows() ([]scheduleRow, error) {
	var html string
	err := k.runWithin(tableWaitTimeout,
		chromedp.WaitReady(selScheduleTable, chromedp.ByQuery),
		chromedp.OuterHTML(selScheduleTable, &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule table did not load: %w", err)
	}
	return parseScheduleTable(html)
}

func (k *kronosPortal) Close() {
	k.session.Close()
}
