package http

import (
	"bytes"
	"emupatch/service"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type Client struct {
	addr   string
	url    string
	client *http.Client
}

func NewClient(addr string) (*Client, error) {
	c := &Client{
		addr:   addr,
		url:    fmt.Sprintf("http://%s", addr),
		client: &http.Client{Timeout: time.Second * 30},
	}

	if !c.IsEmupatchServer() {
		return nil, fmt.Errorf("%s is not an emupatch server", c.addr)
	}
	return c, nil
}

var routes = map[service.CmdType]struct {
	method string
	path   string
}{
	service.Get:    {http.MethodGet, "/get"},
	service.Set:    {http.MethodPost, "/set"},
	service.List:   {http.MethodGet, "/list"},
	service.Toggle: {http.MethodPost, "/toggle"},
	service.Status: {http.MethodGet, "/status"},
	service.Inject: {http.MethodPost, "/inject"},
	service.Disasm: {http.MethodGet, "/disasm"},
}

func (c *Client) SendExpr(cmdType service.CmdType, args string) (string, error) {
	rt, ok := routes[cmdType]
	if !ok {
		return "", fmt.Errorf("unsupported command %s", cmdType)
	}

	resp, err := c.do(&doRequest{
		method: rt.method,
		path:   rt.path,
		expr:   fmt.Sprintf("%s %s", cmdType, args),
	})
	if err != nil {
		return "", err
	}

	if resp.Status != http.StatusOK {
		return "", fmt.Errorf("%s (%d)", resp.Msg, resp.Status)
	}

	respStr, ok := resp.Data.(string)
	if !ok {
		return "", fmt.Errorf("unexpected response type %T", resp.Data)
	}

	return respStr, nil
}

func (c *Client) IsEmupatchServer() bool {
	if c.addr == "" {
		return false
	}

	resp, err := c.do(&doRequest{
		method: http.MethodGet,
		path:   "/emupatch",
	})
	if err != nil {
		fmt.Println("client recv err: ", err)
		return false
	}

	return resp.Status == http.StatusOK
}

type doRequest struct {
	method string
	path   string
	header http.Header
	expr   string
}

func (c *Client) jsonHeader() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "application/json")

	return header
}

func (c *Client) do(req *doRequest) (resp *response, err error) {
	url := c.url + req.path

	exr := newExpression(req.expr, os.Getpid())
	bs, err := json.Marshal(exr)
	if err != nil {
		return
	}

	bodyReader := bytes.NewReader(bs)
	r, err := http.NewRequest(req.method, url, bodyReader)
	if err != nil {
		return
	}

	if req.header == nil {
		r.Header = c.jsonHeader()
	} else {
		r.Header = req.header
	}

	res, err := c.client.Do(r)
	if err != nil {
		return
	}
	defer res.Body.Close()

	bs, err = io.ReadAll(res.Body)
	if err != nil {
		return
	}

	err = json.Unmarshal(bs, &resp)
	return
}
