package main

import (
	"fmt"
	"io"
	"time"
)

// printNavigator reports page changes instead of performing them.
type printNavigator struct {
	w    io.Writer
	last string
}

func (n *printNavigator) Navigate(target string, after time.Duration) {
	n.last = target
	if after > 0 {
		fmt.Fprintf(n.w, "-> %s (after %s)\n", target, after)
		return
	}
	fmt.Fprintf(n.w, "-> %s\n", target)
}

// formView renders a page form as terminal lines.
type formView struct {
	out    io.Writer
	errOut io.Writer
}

func (v formView) SetBusy(busy bool, label string) {
	if busy && label != "" {
		fmt.Fprintln(v.errOut, label)
	}
}

func (v formView) ShowError(msg string) { fmt.Fprintf(v.errOut, "error: %s\n", msg) }

func (v formView) ShowSuccess(msg string) { fmt.Fprintln(v.out, msg) }

func (v formView) OfferResendVerification(target string) {
	fmt.Fprintf(v.errOut, "Resend Verification Email: %s\n", target)
}
