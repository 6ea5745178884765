package carrier

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTrackingURL = "https://tracking.russianpost.ru/rtm34"

// HistoryRecord is one operation reported by the tracking service.
type HistoryRecord struct {
	OperTypeID         string
	OperTypeName       string
	OperAttrID         string
	OperAttrName       string
	OperDate           string
	AddressIndex       string
	AddressDescription string
}

// TrackingClient calls the SOAP 1.2 operation history service.
type TrackingClient struct {
	url      string
	login    string
	password string
	client   *http.Client
}

func NewTrackingClient(url, login, password string, timeout time.Duration) *TrackingClient {
	if url == "" {
		url = DefaultTrackingURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TrackingClient{
		url:      url,
		login:    login,
		password: password,
		client:   &http.Client{Timeout: timeout},
	}
}

type historyEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	Soap    string   `xml:"xmlns:soap,attr"`
	Oper    string   `xml:"xmlns:oper,attr"`
	Data    string   `xml:"xmlns:data,attr"`
	Header  struct{} `xml:"soap:Header"`
	Request struct {
		History struct {
			Barcode     string `xml:"data:Barcode"`
			MessageType string `xml:"data:MessageType"`
			Language    string `xml:"data:Language"`
		} `xml:"data:OperationHistoryRequest"`
		Auth struct {
			MustUnderstand string `xml:"soap:mustUnderstand,attr"`
			Login          string `xml:"data:login"`
			Password       string `xml:"data:password"`
		} `xml:"data:AuthorizationHeader"`
	} `xml:"soap:Body>oper:getOperationHistory"`
}

type historyResponse struct {
	Records []struct {
		Address struct {
			Index       string `xml:"Index"`
			Description string `xml:"Description"`
		} `xml:"AddressParameters>OperationAddress"`
		Params struct {
			Type struct {
				ID   string `xml:"Id"`
				Name string `xml:"Name"`
			} `xml:"OperType"`
			Attr struct {
				ID   string `xml:"Id"`
				Name string `xml:"Name"`
			} `xml:"OperAttr"`
			Date string `xml:"OperDate"`
		} `xml:"OperationParameters"`
	} `xml:"Body>getOperationHistoryResponse>OperationHistoryData>historyRecord"`
	Fault *struct {
		Reason string `xml:"Reason>Text"`
		Code   string `xml:"Code>Value"`
	} `xml:"Body>Fault"`
}

// FaultError is a SOAP fault returned by the tracking service.
type FaultError struct {
	Code   string
	Reason string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("soap fault %s: %s", e.Code, e.Reason)
}

// OperationHistory returns every operation recorded for the barcode, in the order the
// service reported them.
func (c *TrackingClient) OperationHistory(ctx context.Context, barcode string) ([]HistoryRecord, error) {
	env := historyEnvelope{
		Soap: "http://www.w3.org/2003/05/soap-envelope",
		Oper: "http://russianpost.org/operationhistory",
		Data: "http://russianpost.org/operationhistory/data",
	}
	env.Request.History.Barcode = barcode
	env.Request.History.MessageType = "0"
	env.Request.History.Language = "RUS"
	env.Request.Auth.MustUnderstand = "1"
	env.Request.Auth.Login = c.login
	env.Request.Auth.Password = c.password

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml;charset=UTF-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var res historyResponse
	if err := xml.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if res.Fault != nil {
		return nil, &FaultError{Code: res.Fault.Code, Reason: strings.TrimSpace(res.Fault.Reason)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	records := make([]HistoryRecord, 0, len(res.Records))
	for _, r := range res.Records {
		records = append(records, HistoryRecord{
			OperTypeID:         strings.TrimSpace(r.Params.Type.ID),
			OperTypeName:       strings.TrimSpace(r.Params.Type.Name),
			OperAttrID:         strings.TrimSpace(r.Params.Attr.ID),
			OperAttrName:       strings.TrimSpace(r.Params.Attr.Name),
			OperDate:           strings.TrimSpace(r.Params.Date),
			AddressIndex:       strings.TrimSpace(r.Address.Index),
			AddressDescription: strings.TrimSpace(r.Address.Description),
		})
	}
	return records, nil
}
