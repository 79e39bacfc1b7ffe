package reminder

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
)

// Opener hands a deep link to the operator.
type Opener interface {
	Open(url string) error
}

// BrowserOpener opens each link in the default browser.
type BrowserOpener struct{}

// Open implements Opener.
func (BrowserOpener) Open(url string) error {
	return browser.OpenURL(url)
}

// WriterOpener prints links instead of opening them, for headless hosts.
type WriterOpener struct {
	W io.Writer
}

// Open implements Opener.
func (o WriterOpener) Open(url string) error {
	_, err := fmt.Fprintln(o.W, url)
	return err
}
