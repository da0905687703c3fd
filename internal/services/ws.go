package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     localOrigin,
}

// localOrigin admits the desktop UI only: no Origin header, file:// pages or
// pages served from the loopback interface.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme == "file" {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// --- WebSocket Gateway ---

// WSServer exposes the gateway to the UI process over a websocket. Requests on
// one connection are served concurrently; responses carry the request id.
type WSServer struct {
	ctx     context.Context
	gateway *Gateway
}

// NewWSServer serves gateway calls. Scripts run under ctx, so they outlive a
// dropped connection but not the host.
func NewWSServer(ctx context.Context, gateway *Gateway) *WSServer {
	return &WSServer{ctx: ctx, gateway: gateway}
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("[ws] UI connected from %s", r.RemoteAddr)

	connCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		log.Printf("[ws] Set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan model.WSResponse, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-connCtx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					log.Printf("[ws] Write error: %v", err)
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	var inflight sync.WaitGroup
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] Read error: %v", err)
			}
			break
		}
		// any message from the UI proves the connection is alive
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		msg, err := decodeRequest(data)
		if err != nil {
			log.Printf("[ws] Invalid request %q: %v", msg.ID, err)
			select {
			case writeCh <- invalidRequest(msg.ID, err):
			case <-connCtx.Done():
			}
			continue
		}

		inflight.Add(1)
		go func(req model.WSRequest) {
			defer inflight.Done()
			resp := s.Handle(s.ctx, req)
			select {
			case writeCh <- resp:
			case <-connCtx.Done():
				log.Printf("[ws] Dropping %s response %s: connection closed", req.Type, req.ID)
			}
		}(msg)
	}

	cancel()
	<-writerDone
	inflight.Wait()
	log.Printf("[ws] UI disconnected from %s", r.RemoteAddr)
}

// Handle dispatches one request to the gateway.
func (s *WSServer) Handle(ctx context.Context, req model.WSRequest) model.WSResponse {
	resp := model.WSResponse{ID: req.ID, Type: req.Type, OK: true}
	g := s.gateway

	switch req.Type {
	case model.MessageTypePing:
		resp.Type = model.MessageTypePong

	case model.MessageTypeRunPython:
		output, err := g.RunPython(ctx, req.ScriptName, req.Args)
		if err != nil {
			return failed(resp, err)
		}
		resp.Result = output

	case model.MessageTypeExecutePython:
		resp.Result = g.ExecutePython(ctx, req.Action, req.Data)

	case model.MessageTypeGetPrinterConfig:
		resp.Result = g.GetPrinterConfig()

	case model.MessageTypeSavePrinterConfig:
		result := g.SavePrinterConfig(req.Config)
		resp.OK = result.Success
		resp.Result = result
		resp.Error = result.Error

	case model.MessageTypeCreateLabel:
		if req.Label == nil {
			return failed(resp, errors.New("label is required"))
		}
		created, err := g.CreateLabel(ctx, *req.Label)
		if err != nil {
			return failed(resp, err)
		}
		resp.Result = created

	case model.MessageTypePrintControl:
		result, err := g.PrintControl(ctx, req.Command, req.MessageName)
		if err != nil {
			return failed(resp, err)
		}
		resp.OK = result.Success
		resp.Result = result

	case model.MessageTypeCheckPrinter:
		resp.Result = g.CheckPrinter()

	case model.MessageTypeDiscoverPrinters:
		found, err := g.DiscoverPrinters(ctx)
		if err != nil {
			return failed(resp, err)
		}
		if found == nil {
			found = []string{}
		}
		resp.Result = found

	case model.MessageTypeRenderPreview:
		if req.Label == nil {
			return failed(resp, errors.New("label is required"))
		}
		preview, err := g.RenderPreview(ctx, *req.Label)
		if err != nil {
			return failed(resp, err)
		}
		resp.Result = preview

	case model.MessageTypeGetHistory:
		resp.Result = g.History()

	default:
		log.Printf("[ws] Unknown message type: %s", req.Type)
		resp.Type = model.MessageTypeError
		resp.OK = false
		resp.Error = "unknown message type: " + string(req.Type)
	}
	return resp
}

// decodeRequest parses one frame. On failure the returned request still
// carries the id when the frame had a readable one.
func decodeRequest(data []byte) (model.WSRequest, error) {
	var req model.WSRequest
	if err := json.Unmarshal(data, &req); err != nil {
		var envelope struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(data, &envelope)
		return model.WSRequest{ID: envelope.ID}, err
	}
	return req, nil
}

func invalidRequest(id string, err error) model.WSResponse {
	return model.WSResponse{
		ID:    id,
		Type:  model.MessageTypeError,
		OK:    false,
		Error: "invalid request: " + err.Error(),
	}
}

func failed(resp model.WSResponse, err error) model.WSResponse {
	resp.OK = false
	resp.Error = err.Error()
	return resp
}
