// Copyright 2026 The LUCI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package connector

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"go.chromium.org/luci/common/errors"
)

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	messageNS      = "http://www.witsml.org/message/120"
	actionPrefix   = "http://www.witsml.org/action/120/Store."

	wsseNS       = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	passwordText = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"
)

// soapStore speaks the WITSML Store API as SOAP 1.1 over HTTP.
type soapStore struct {
	url      string
	username string
	password string
	client   *http.Client
}

var _ Store = (*soapStore)(nil)

// DialSOAP is the default Dialer. It does not touch the network; the first
// procedure call does.
func DialSOAP(ctx context.Context, opts Options) (Store, error) {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &soapStore{
		url:      opts.URL,
		username: opts.Username,
		password: opts.Password,
		client:   &http.Client{Transport: transport, Timeout: opts.Timeout},
	}, nil
}

func (s *soapStore) GetVersion(ctx context.Context) (string, error) {
	r, err := s.do(ctx, ProcGetVersion, &getVersionRequest{NS: messageNS})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(r.Result), nil
}

func (s *soapStore) GetCap(ctx context.Context, options string) (Reply, error) {
	r, err := s.do(ctx, ProcGetCap, &getCapRequest{NS: messageNS, OptionsIn: options})
	if err != nil {
		return Reply{}, err
	}
	return r.reply(ProcGetCap, r.CapabilitiesOut)
}

func (s *soapStore) GetBaseMsg(ctx context.Context, code int) (string, error) {
	r, err := s.do(ctx, ProcGetBaseMsg, &getBaseMsgRequest{NS: messageNS, ReturnValueIn: code})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(r.Result), nil
}

func (s *soapStore) GetFromStore(ctx context.Context, objectType, query, options string) (Reply, error) {
	r, err := s.do(ctx, ProcGetFromStore, newStoreRequest(ProcGetFromStore, objectType, options).withQuery(query))
	if err != nil {
		return Reply{}, err
	}
	return r.reply(ProcGetFromStore, r.XMLout)
}

func (s *soapStore) AddToStore(ctx context.Context, objectType, xmlIn, options string) (Reply, error) {
	r, err := s.do(ctx, ProcAddToStore, newStoreRequest(ProcAddToStore, objectType, options).withXML(xmlIn))
	if err != nil {
		return Reply{}, err
	}
	return r.reply(ProcAddToStore, "")
}

func (s *soapStore) UpdateInStore(ctx context.Context, objectType, xmlIn, options string) (Reply, error) {
	r, err := s.do(ctx, ProcUpdateInStore, newStoreRequest(ProcUpdateInStore, objectType, options).withXML(xmlIn))
	if err != nil {
		return Reply{}, err
	}
	return r.reply(ProcUpdateInStore, "")
}

func (s *soapStore) DeleteFromStore(ctx context.Context, objectType, query, options string) (Reply, error) {
	r, err := s.do(ctx, ProcDeleteFromStore, newStoreRequest(ProcDeleteFromStore, objectType, options).withQuery(query))
	if err != nil {
		return Reply{}, err
	}
	return r.reply(ProcDeleteFromStore, "")
}

func (s *soapStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// do sends one request envelope and decodes the response body.
func (s *soapStore) do(ctx context.Context, proc string, req any) (*response, error) {
	env := envelope{SoapNS: soapEnvelopeNS, Body: body{Request: req}}
	if s.username != "" {
		env.WsseNS = wsseNS
		env.Header = &header{
			Security: security{
				Token: usernameToken{
					Username: s.username,
					Password: password{Type: passwordText, Value: s.password},
				},
			},
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, errors.Fmt("%s: encoding request: %w", proc, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &buf)
	if err != nil {
		return nil, errors.Fmt("%s: %w", proc, err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", strconv.Quote(actionPrefix+proc))
	if s.username != "" {
		httpReq.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Procedure: proc, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Procedure: proc, Err: err}
	}

	var out responseEnvelope
	decodeErr := decodeXML(raw, &out)
	if decodeErr == nil && out.Body.Fault != nil {
		return nil, &FaultError{
			Code:   strings.TrimSpace(out.Body.Fault.Code),
			Reason: strings.TrimSpace(out.Body.Fault.Reason),
		}
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &TransportError{Procedure: proc, Err: errors.Fmt("HTTP %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Fmt("%s: unexpected HTTP status %d", proc, resp.StatusCode)
	case decodeErr != nil:
		return nil, errors.Fmt("%s: decoding response: %w", proc, decodeErr)
	}
	return &out.Body.Response, nil
}

// decodeXML decodes a response, honoring its declared encoding. Stores
// commonly answer in ISO-8859-1.
func decodeXML(raw []byte, v any) error {
	d := xml.NewDecoder(bytes.NewReader(raw))
	d.CharsetReader = charset.NewReaderLabel
	return d.Decode(v)
}

type envelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	WsseNS  string   `xml:"xmlns:wsse,attr,omitempty"`
	Header  *header  `xml:"soap:Header,omitempty"`
	Body    body     `xml:"soap:Body"`
}

type header struct {
	Security security `xml:"wsse:Security"`
}

type security struct {
	Token usernameToken `xml:"wsse:UsernameToken"`
}

type usernameToken struct {
	Username string   `xml:"wsse:Username"`
	Password password `xml:"wsse:Password"`
}

type password struct {
	Type  string `xml:"Type,attr"`
	Value string `xml:",chardata"`
}

type body struct {
	Request any
}

type getVersionRequest struct {
	XMLName xml.Name `xml:"wmls:WMLS_GetVersion"`
	NS      string   `xml:"xmlns:wmls,attr"`
}

type getCapRequest struct {
	XMLName   xml.Name `xml:"wmls:WMLS_GetCap"`
	NS        string   `xml:"xmlns:wmls,attr"`
	OptionsIn string
}

type getBaseMsgRequest struct {
	XMLName       xml.Name `xml:"wmls:WMLS_GetBaseMsg"`
	NS            string   `xml:"xmlns:wmls,attr"`
	ReturnValueIn int
}

// storeRequest is the argument list shared by the object procedures. Reads
// and deletes carry QueryIn, writes carry XMLin.
type storeRequest struct {
	XMLName        xml.Name
	NS             string `xml:"xmlns:wmls,attr"`
	WMLtypeIn      string
	QueryIn        *string
	XMLin          *string
	OptionsIn      string
	CapabilitiesIn string
}

func newStoreRequest(proc, objectType, options string) *storeRequest {
	return &storeRequest{
		XMLName:   xml.Name{Local: "wmls:" + proc},
		NS:        messageNS,
		WMLtypeIn: objectType,
		OptionsIn: options,
	}
}

func (r *storeRequest) withQuery(q string) *storeRequest {
	r.QueryIn = &q
	return r
}

func (r *storeRequest) withXML(x string) *storeRequest {
	r.XMLin = &x
	return r
}

type responseEnvelope struct {
	Body struct {
		Fault    *fault   `xml:"Fault"`
		Response response `xml:",any"`
	} `xml:"Body"`
}

type fault struct {
	Code   string `xml:"faultcode"`
	Reason string `xml:"faultstring"`
}

type response struct {
	XMLName         xml.Name
	Result          string `xml:"Result"`
	XMLout          string `xml:"XMLout"`
	CapabilitiesOut string `xml:"CapabilitiesOut"`
	SuppMsgOut      string `xml:"SuppMsgOut"`
}

// reply interprets Result as a status code.
func (r *response) reply(proc, doc string) (Reply, error) {
	code, err := strconv.Atoi(strings.TrimSpace(r.Result))
	if err != nil {
		return Reply{}, errors.Fmt("%s: malformed status code %q", proc, r.Result)
	}
	return Reply{Code: code, XML: doc, SuppMsg: strings.TrimSpace(r.SuppMsgOut)}, nil
}
