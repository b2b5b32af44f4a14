package auth

import (
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"

	"github.com/go-chi/chi/v5"
)

// callback carries the parameters delivered to the local redirect endpoint
// by the external authorization flow.
type callback struct {
	Code  string
	State string
}

// callbackServer is a single-use localhost HTTP listener for the delegated
// sign-in redirect. Only the first callback is delivered; later requests
// get a plain "already handled" page.
type callbackServer struct {
	listener net.Listener
	server   *http.Server
	done     chan callback
}

func newCallbackServer(addr string) (*callbackServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	cs := &callbackServer{
		listener: ln,
		done:     make(chan callback, 1),
	}

	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		cb := callback{
			Code:  req.URL.Query().Get("code"),
			State: req.URL.Query().Get("state"),
		}
		select {
		case cs.done <- cb:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><p>Sign-in complete. You can close this tab and return to your terminal.</p></body></html>")
		default:
			http.Error(w, "sign-in already handled", http.StatusGone)
		}
	})

	cs.server = &http.Server{Handler: r}
	go cs.server.Serve(ln)
	return cs, nil
}

// RedirectURL is the URL the authorization flow should redirect back to.
func (cs *callbackServer) RedirectURL() string {
	return fmt.Sprintf("http://%s/callback", cs.listener.Addr().String())
}

// Done delivers the first callback received.
func (cs *callbackServer) Done() <-chan callback { return cs.done }

// Close shuts the listener down.
func (cs *callbackServer) Close() error { return cs.server.Close() }

// OpenBrowser launches the system browser at url.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
