package upnpigd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/soap"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
)

// get fetches a description document.
func (c *Client) get(ctx context.Context, op, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.transport.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    url,
		Header: http.Header{"User-Agent": []string{c.userAgent}},
	})
	if err != nil {
		return nil, newError(KindTransport, op, err)
	}
	if 400 <= resp.StatusCode {
		return nil, newError(KindTransport, op,
			fmt.Errorf("got error status code fetching %s: %d", url, resp.StatusCode))
	}

	return resp.Body, nil
}

// perform invokes action on the gateway's control URL. A returned fault has
// not been translated yet; that depends on the operation.
func (g *Gateway) perform(ctx context.Context, op, action string, args ...soap.Arg) (*soap.Response, *soap.Fault, error) {
	c := g.client

	req, err := soap.BuildRequest(g.serviceType, action, args...)
	if err != nil {
		return nil, nil, newError(KindInvalidArgument, op, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	start := c.clock.Now()
	result := resultError
	defer func() {
		c.metrics.observeAction(action, result, c.clock.Since(start).Seconds())
	}()

	resp, err := c.transport.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    g.control.String(),
		Header: req.Header,
		Body:   req.Body,
	})
	if err != nil {
		return nil, nil, newError(KindTransport, op, err)
	}

	// Faults are recognized by structure; gateways disagree on the status
	// code that goes with them.
	r, f, err := soap.ParseResponse(resp.Body)
	if err != nil {
		if 400 <= resp.StatusCode {
			return nil, nil, newError(KindTransport, op,
				fmt.Errorf("got error status code from gateway: %d", resp.StatusCode))
		}
		return nil, nil, newError(KindMalformedResponse, op, err)
	}
	if f != nil {
		result = resultFault
		c.log(ctx).Debug().
			Str("action", action).
			Int("code", f.Code).
			Str("description", f.Description).
			Msg("gateway returned fault")
		return nil, f, nil
	}

	result = resultOK
	return r, nil, nil
}

// protocolFault is the translation for fault codes an operation has no
// dedicated kind for.
func protocolFault(op string, f *soap.Fault) *Error {
	desc := f.Description
	if desc == "" {
		desc = f.FaultString
	}
	return faultError(KindProtocolFault, op, f.Code, desc)
}
