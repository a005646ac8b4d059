package links

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Proxifier rewrites a third-party URL so it is fetched through a proxy.
type Proxifier interface {
	Proxify(target string) string
}

// Identity leaves URLs untouched.
type Identity struct{}

// Proxify implements Proxifier.
func (Identity) Proxify(target string) string { return target }

// QueryProxifier passes the target as a query parameter of Endpoint. When Key
// is set the request also carries h=<hex HMAC-SHA256 of target> so the proxy
// can refuse URLs it did not hand out.
type QueryProxifier struct {
	Endpoint string
	Param    string
	Key      string
}

// Proxify implements Proxifier.
func (p QueryProxifier) Proxify(target string) string {
	param := p.Param
	if param == "" {
		param = "url"
	}
	q := url.Values{param: {target}}
	if p.Key != "" {
		q.Set("h", Sign(p.Key, target))
	}
	sep := "?"
	if strings.Contains(p.Endpoint, "?") {
		sep = "&"
	}
	return p.Endpoint + sep + q.Encode()
}

// Sign returns the hex HMAC-SHA256 of target under key.
func Sign(key, target string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(target))
	return hex.EncodeToString(mac.Sum(nil))
}

