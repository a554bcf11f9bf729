package redirect

import (
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"runtime"

	"github.com/markb/spaauth/internal/log"
)

// Navigator performs a full-page navigation to a URL. Navigation is the only
// effect; failures are not reported back.
type Navigator interface {
	Navigate(url string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string)

// Navigate calls f(url).
func (f NavigatorFunc) Navigate(url string) { f(url) }

// HTTPNavigator answers the current request with a 302 to the URL.
type HTTPNavigator struct {
	W http.ResponseWriter
	R *http.Request
}

// Navigate writes the redirect response.
func (n HTTPNavigator) Navigate(url string) {
	http.Redirect(n.W, n.R, url, http.StatusFound)
}

// WriterNavigator prints the URL, one per line.
type WriterNavigator struct {
	W io.Writer
}

// Navigate prints url.
func (n WriterNavigator) Navigate(url string) {
	fmt.Fprintln(n.W, url)
}

// BrowserNavigator opens the URL in the system browser. When no opener is
// available the URL is printed to Fallback instead.
type BrowserNavigator struct {
	Fallback io.Writer
}

// Navigate starts the platform opener without waiting for it.
func (n BrowserNavigator) Navigate(url string) {
	name, args := openCommand(runtime.GOOS, url)
	if _, err := exec.LookPath(name); err != nil {
		log.Warn("no browser opener found", "command", name, "error", err)
		n.fallback(url)
		return
	}
	if err := exec.Command(name, args...).Start(); err != nil {
		log.Warn("failed to open browser", "command", name, "error", err)
		n.fallback(url)
	}
}

func (n BrowserNavigator) fallback(url string) {
	if n.Fallback != nil {
		fmt.Fprintln(n.Fallback, url)
	}
}

func openCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
