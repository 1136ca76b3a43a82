package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"photofetch/pkg/batch"
)

const notifyTimeout = 5 * time.Second

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(ctx context.Context, title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(ctx context.Context, title, message string) error {
	return exec.CommandContext(ctx, "notify-send", "--app-name=photofetch", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(ctx context.Context, title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.CommandContext(ctx, "osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(ctx context.Context, title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastTemplateType]::ToastText02
		$xml = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent($template)
		$text = $xml.GetElementsByTagName("text")
		$text.Item(0).AppendChild($xml.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($xml.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($xml)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("photofetch").Show($toast)
	`, psQuote(title), psQuote(message))
	return exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// psQuote escapes s for a single-quoted PowerShell string
func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Notifier sends desktop notifications when the platform supports them
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier() *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return NewNotifierWithSender(sender)
}

// NewNotifierWithSender creates a Notifier using sender. A nil sender
// disables desktop notifications.
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// Send delivers a notification. Failures are returned but never fatal for
// a run.
func (n *Notifier) Send(title, message string) error {
	if n.sender == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	return n.sender.Send(ctx, title, message)
}

// NotifyFinished sends a notification describing a finished run
func (n *Notifier) NotifyFinished(s batch.Summary) error {
	title := "photofetch: run complete"
	if s.Interrupted {
		title = "photofetch: run interrupted"
	}
	return n.Send(title, SummaryLine(s))
}

// SummaryLine renders a one-line run summary
func SummaryLine(s batch.Summary) string {
	return fmt.Sprintf("%d downloaded, %d failed, %d skipped (checkpoint %d of %d)",
		s.Downloaded, s.Failed, s.Skipped, s.LastProcessedIndex, s.Total)
}
