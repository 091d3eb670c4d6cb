package main

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/cihub/seelog"
	"github.com/parnurzeal/gorequest"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"

	"github.com/camerondurham/painful-testing/util"
)

func Get(url string, auth *Auth, tlsConfig *tls.Config, proxy string, timeout time.Duration) (*http.Response, string, error) {

	request := gorequest.New()

	tr := &http.Transport{
		DisableKeepAlives:  true,
		DisableCompression: false,
		TLSClientConfig:    tlsConfig,
	}
	request.Transport = tr

	if auth != nil {
		request.SetBasicAuth(auth.User, auth.Pass)
	}

	if len(proxy) > 0 {
		request.Proxy(proxy)
	}

	if timeout > 0 {
		request.Timeout(timeout)
	}

	resp, body, errs := request.Get(url).End()
	if len(errs) > 0 {
		return resp, body, errors.Wrapf(ErrConnection, "GET %s: %v", url, errs[0])
	}
	return resp, body, nil
}

func newFastHttpClient(tlsConfig *tls.Config, proxy string) *fasthttp.Client {
	c := &fasthttp.Client{
		TLSConfig: tlsConfig,
	}
	if len(proxy) > 0 {
		c.Dial = fasthttpproxy.FasthttpHTTPDialer(strings.TrimPrefix(strings.TrimPrefix(proxy, "http://"), "https://"))
	}
	return c
}

// DoRequest sends one request through fasthttp and returns the status code and
// the (decompressed) body.
func DoRequest(c *fasthttp.Client, compress bool, method string, loadUrl string, auth *Auth, body []byte, timeout time.Duration) (int, []byte, error) {

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(loadUrl)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")

	if compress {
		req.Header.Set("Accept-Encoding", "gzip")
	}

	if auth != nil {
		req.URI().SetUsername(auth.User)
		req.URI().SetPassword(auth.Pass)
	}

	if len(body) > 0 {
		if compress {
			req.Header.Set("Content-Encoding", "gzip")
			if _, err := fasthttp.WriteGzipLevel(req.BodyWriter(), body, fasthttp.CompressBestSpeed); err != nil {
				return 0, nil, errors.Wrap(err, "failed to compress request body")
			}
		} else {
			req.SetBody(body)
		}
	}

	var err error
	if timeout > 0 {
		err = c.DoTimeout(req, resp, timeout)
	} else {
		err = c.Do(req, resp)
	}
	if err != nil {
		return 0, nil, errors.Wrapf(ErrConnection, "%s %s: %v", method, loadUrl, err)
	}

	var respBody []byte
	if bytes.EqualFold(resp.Header.ContentEncoding(), []byte("gzip")) {
		respBody, err = resp.BodyGunzip()
		if err != nil {
			return resp.StatusCode(), nil, errors.Wrap(err, "failed to decompress response body")
		}
	} else {
		respBody = append([]byte(nil), resp.Body()...)
	}

	if resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
		log.Trace("received status code ", resp.StatusCode(), " from ", loadUrl)
	} else {
		log.Debug("received status code ", resp.StatusCode(), " from ", loadUrl, ": ", util.SubString(string(respBody), 0, 500))
	}
	return resp.StatusCode(), respBody, nil
}

// closeResponse drains and closes the HTTP response body.
func closeResponse(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

// DecodeJson decodes exactly one JSON value from jsonStream. Trailing content
// other than whitespace is an error.
func DecodeJson(jsonStream string, o interface{}) error {
	return decodeJson(strings.NewReader(jsonStream), o)
}

func DecodeJsonBytes(jsonStream []byte, o interface{}) error {
	return decodeJson(bytes.NewReader(jsonStream), o)
}

func decodeJson(r io.Reader, o interface{}) error {
	decoder := json.NewDecoder(r)
	// UseNumber causes the Decoder to unmarshal a number into an interface{} as a Number instead of as a float64.
	decoder.UseNumber()

	if err := decoder.Decode(o); err != nil {
		return err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("unexpected content after the json document")
	}
	return nil
}
