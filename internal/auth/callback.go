package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
)

// AuthorizeURL is the hosted sign-in page that redirects back with an
// authorization code.
func AuthorizeURL(authDomain, clientID, redirectURI string) string {
	q := url.Values{
		"client_id":     {clientID},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"redirect_uri":  {redirectURI},
	}
	return fmt.Sprintf("https://%s/oauth2/authorize?%s", authDomain, q.Encode())
}

// CallbackListener receives the provider redirect on a loopback address
// and hands the authorization code to the caller. Only the first
// redirect counts; repeats get a page but change nothing.
type CallbackListener struct {
	ln      net.Listener
	srv     *http.Server
	results chan callbackResult
	once    sync.Once
}

type callbackResult struct {
	code string
	err  error
}

const signedInPage = `<!DOCTYPE html><html><body><p>Signed in. You can close this window and return to the terminal.</p></body></html>`
const signInFailedPage = `<!DOCTYPE html><html><body><p>Sign-in failed. Return to the terminal for details.</p></body></html>`

// NewCallbackListener binds the host and port named by the redirect URI
// and serves its path until Close.
func NewCallbackListener(redirectURI string) (*CallbackListener, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("parse redirect uri: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", u.Host, err)
	}

	l := &CallbackListener{
		ln:      ln,
		results: make(chan callbackResult, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.handle)
	l.srv = &http.Server{Handler: mux}
	go func() { _ = l.srv.Serve(ln) }()

	return l, nil
}

func (l *CallbackListener) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var res callbackResult
	switch {
	case q.Get("error") != "":
		msg := q.Get("error_description")
		if msg == "" {
			msg = q.Get("error")
		}
		res = callbackResult{err: &ExchangeError{Grant: grantAuthorizationCode, Code: q.Get("error"), Message: msg}}
	case q.Get("code") == "":
		res = callbackResult{err: &ExchangeError{Grant: grantAuthorizationCode, Message: "redirect carried no authorization code"}}
	default:
		res = callbackResult{code: q.Get("code")}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, signInFailedPage)
	} else {
		fmt.Fprint(w, signedInPage)
	}

	l.once.Do(func() { l.results <- res })
}

// Wait blocks until the redirect arrives or the context ends.
func (l *CallbackListener) Wait(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-l.results:
		return res.code, res.err
	}
}

// Addr reports the bound address, which differs from the redirect URI
// host when the URI names port 0.
func (l *CallbackListener) Addr() string {
	return l.ln.Addr().String()
}

func (l *CallbackListener) Close() error {
	return l.srv.Close()
}
