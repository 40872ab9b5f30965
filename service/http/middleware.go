package http

import (
	"emupatch/utils"
	"encoding/json"
	"fmt"
	"github.com/google/uuid"
	"io"
	"net/http"
)

// maxBody bounds request bodies; expressions are a handful of words.
const maxBody = 64 << 10

type Handler func(ctx *Context)

type HandlerChain []Handler

func httpHandlerChain(do Handler) HandlerChain {
	return []Handler{
		parseRequest,
		logRequest,
		parseExpression,
		guard(do),
		logResponse,
	}
}

// exec runs the chain. Once a handler has responded only the last one,
// which logs the response, still runs.
func (h HandlerChain) exec(ctx *Context) {
	for i, handler := range h {
		if ctx.responded() && i < len(h)-1 {
			continue
		}
		handler(ctx)
	}
}

// guard turns a panic in do into a 500. Encoder preconditions panic on
// operands a client can supply, such as an out of range li.
func guard(do Handler) Handler {
	return func(ctx *Context) {
		defer func() {
			if r := recover(); r != nil {
				ctx.respFailed(http.StatusInternalServerError, fmt.Sprint(r))
			}
		}()
		do(ctx)
	}
}

func parseRequest(ctx *Context) {
	if ctx.read == nil {
		return
	}
	r := &request{
		requestID: uuid.New().String(),
		url:       utils.GetFullURL(ctx.read),
		path:      ctx.read.URL.Path,
		method:    ctx.read.Method,
		clientIP:  utils.GetClientIP(ctx.read),
	}
	ctx.write.Header().Set("X-Request-Id", r.requestID)
	ctx.request = r

	bs, err := io.ReadAll(io.LimitReader(ctx.read.Body, maxBody+1))
	if err != nil {
		ctx.respFailed(http.StatusBadRequest, err.Error())
		return
	}
	if len(bs) > maxBody {
		ctx.respFailed(http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	r.body = bs
}

func parseExpression(ctx *Context) {
	req := ctx.request
	if req == nil {
		return
	}
	exr := new(Expression)
	if len(req.body) > 0 {
		if err := json.Unmarshal(req.body, exr); err != nil {
			ctx.respFailed(http.StatusBadRequest, err.Error())
			return
		}
	}
	ctx.expr = exr
}

func logRequest(ctx *Context) {
	req := ctx.request
	if ctx.logger == nil || req == nil {
		return
	}
	ctx.logger.Infow("request",
		"id", req.requestID,
		"method", req.method,
		"url", req.url,
		"client", req.clientIP,
		"body", string(req.body))
}

func logResponse(ctx *Context) {
	res := ctx.response
	if ctx.logger == nil || res == nil {
		return
	}
	var id string
	if ctx.request != nil {
		id = ctx.request.requestID
	}
	if res.Status >= http.StatusInternalServerError {
		ctx.logger.Errorw("response", "id", id, "status", res.Status, "msg", res.Msg)
		return
	}
	ctx.logger.Infow("response", "id", id, "status", res.Status, "msg", res.Msg, "data", res.Data)
}
