// Package video provides a remote camera source over WebRTC, for running
// the bridge on a different host than the one holding the camera. It
// speaks the GStreamer webrtcsink signalling protocol.
package video

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"gocv.io/x/gocv"

	"github.com/wizzyworks/go-bridge/internal/log"
)

// Config holds the signalling parameters for a remote camera.
type Config struct {
	// SignallingURL is the webrtcsink signalling server, e.g. ws://host:8443.
	SignallingURL string

	// ProducerName selects the producer to consume from the server's list.
	ProducerName string

	// ConnectTimeout bounds the wait for the first video packet.
	ConnectTimeout time.Duration
}

// DefaultConfig returns signalling defaults for a camera host.
func DefaultConfig(host string) Config {
	return Config{
		SignallingURL:  fmt.Sprintf("ws://%s:8443", host),
		ProducerName:   "bridge-cam",
		ConnectTimeout: 15 * time.Second,
	}
}

// RemoteCamera consumes a WebRTC video stream and exposes the latest
// frame. It implements the scanner's FrameSource.
type RemoteCamera struct {
	cfg Config

	ws   *websocket.Conn
	wsMu sync.Mutex
	pc   *webrtc.PeerConnection

	peerID     string
	producerID string
	sessionID  string

	frameMu     sync.RWMutex
	latestJPEG  []byte
	firstPacket chan struct{}

	closed bool
}

// NewRemoteCamera creates an unconnected remote camera.
func NewRemoteCamera(cfg Config) *RemoteCamera {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}
	return &RemoteCamera{
		cfg:         cfg,
		firstPacket: make(chan struct{}, 1),
	}
}

// Connect performs signalling and waits for video to start flowing.
func (r *RemoteCamera) Connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	var err error
	r.ws, _, err = dialer.Dial(r.cfg.SignallingURL, nil)
	if err != nil {
		return fmt.Errorf("signalling connect: %w", err)
	}

	if err := r.waitForWelcome(); err != nil {
		return fmt.Errorf("welcome: %w", err)
	}
	if err := r.findProducer(); err != nil {
		return fmt.Errorf("find producer: %w", err)
	}
	if err := r.createPeerConnection(); err != nil {
		return fmt.Errorf("peer connection: %w", err)
	}
	if err := r.writeSignal(map[string]string{
		"type":   "startSession",
		"peerId": r.producerID,
	}); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	go r.handleSignalling()

	select {
	case <-r.firstPacket:
		log.Info("remote camera connected", "url", r.cfg.SignallingURL)
	case <-time.After(r.cfg.ConnectTimeout):
		return fmt.Errorf("timeout waiting for video")
	}

	return nil
}

func (r *RemoteCamera) waitForWelcome() error {
	r.ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer r.ws.SetReadDeadline(time.Time{})

	_, msg, err := r.ws.ReadMessage()
	if err != nil {
		return err
	}

	var welcome struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId"`
	}
	if err := json.Unmarshal(msg, &welcome); err != nil {
		return err
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %s", welcome.Type)
	}
	r.peerID = welcome.PeerID
	return nil
}

func (r *RemoteCamera) findProducer() error {
	if err := r.writeSignal(map[string]string{"type": "list"}); err != nil {
		return err
	}

	r.ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer r.ws.SetReadDeadline(time.Time{})

	_, msg, err := r.ws.ReadMessage()
	if err != nil {
		return err
	}

	var list struct {
		Producers []struct {
			ID   string            `json:"id"`
			Meta map[string]string `json:"meta"`
		} `json:"producers"`
	}
	if err := json.Unmarshal(msg, &list); err != nil {
		return err
	}

	for _, p := range list.Producers {
		if p.Meta["name"] == r.cfg.ProducerName {
			r.producerID = p.ID
			return nil
		}
	}
	return fmt.Errorf("producer %q not found among %d producers", r.cfg.ProducerName, len(list.Producers))
}

func (r *RemoteCamera) createPeerConnection() error {
	var err error
	r.pc, err = webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}

	if _, err = r.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	r.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			log.Info("video track started", "codec", track.Codec().MimeType)
			go r.consumeTrack(track)
		}
	})

	r.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			r.sendICECandidate(candidate)
		}
	})

	r.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("peer connection state", "state", state.String())
	})

	return nil
}

func (r *RemoteCamera) handleSignalling() {
	for !r.closed {
		_, msg, err := r.ws.ReadMessage()
		if err != nil {
			if !r.closed {
				log.Warn("signalling read failed", "error", err)
			}
			return
		}

		var base struct {
			Type      string `json:"type"`
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "sessionStarted":
			r.sessionID = base.SessionID
		case "peer":
			r.handlePeerMessage(msg)
		case "endSession":
			return
		}
	}
}

func (r *RemoteCamera) handlePeerMessage(msg []byte) {
	var peer struct {
		SDP *struct {
			Type string `json:"type"`
			SDP  string `json:"sdp"`
		} `json:"sdp"`
		ICE *struct {
			Candidate     string  `json:"candidate"`
			SDPMid        *string `json:"sdpMid"`
			SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
		} `json:"ice"`
	}
	if err := json.Unmarshal(msg, &peer); err != nil {
		log.Warn("bad peer message", "error", err)
		return
	}

	if peer.SDP != nil && peer.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  peer.SDP.SDP,
		}
		if err := r.pc.SetRemoteDescription(offer); err != nil {
			log.Warn("set remote description failed", "error", err)
			return
		}
		answer, err := r.pc.CreateAnswer(nil)
		if err != nil {
			log.Warn("create answer failed", "error", err)
			return
		}
		if err := r.pc.SetLocalDescription(answer); err != nil {
			log.Warn("set local description failed", "error", err)
			return
		}
		r.writeSignal(map[string]any{
			"type":      "peer",
			"sessionId": r.sessionID,
			"sdp": map[string]string{
				"type": answer.Type.String(),
				"sdp":  answer.SDP,
			},
		})
	}

	if peer.ICE != nil {
		r.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     peer.ICE.Candidate,
			SDPMid:        peer.ICE.SDPMid,
			SDPMLineIndex: peer.ICE.SDPMLineIndex,
		})
	}
}

func (r *RemoteCamera) sendICECandidate(candidate *webrtc.ICECandidate) {
	if r.sessionID == "" {
		return
	}
	init := candidate.ToJSON()
	r.writeSignal(map[string]any{
		"type":      "peer",
		"sessionId": r.sessionID,
		"ice": map[string]any{
			"candidate":     init.Candidate,
			"sdpMid":        init.SDPMid,
			"sdpMLineIndex": init.SDPMLineIndex,
		},
	})
}

func (r *RemoteCamera) writeSignal(v any) error {
	r.wsMu.Lock()
	defer r.wsMu.Unlock()
	return r.ws.WriteJSON(v)
}

// consumeTrack buffers H264 NAL units from RTP and decodes a frame every
// 100ms into the latest-frame cell.
func (r *RemoteCamera) consumeTrack(track *webrtc.TrackRemote) {
	select {
	case r.firstPacket <- struct{}{}:
	default:
	}

	var nalBuffer bytes.Buffer
	lastDecode := time.Now()

	for !r.closed {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		appendPayload(&nalBuffer, pkt)

		if time.Since(lastDecode) > 100*time.Millisecond {
			r.decodeToJPEG(nalBuffer.Bytes())
			nalBuffer.Reset()
			lastDecode = time.Now()
		}
	}
}

// appendPayload accumulates one RTP packet's H264 payload.
func appendPayload(buf *bytes.Buffer, pkt *rtp.Packet) {
	buf.Write(pkt.Payload)
}

// decodeToJPEG decodes a raw H264 buffer to a single JPEG via ffmpeg.
func (r *RemoteCamera) decodeToJPEG(h264 []byte) {
	if len(h264) < 100 {
		return
	}

	tmpH264 := "/tmp/bridge_remote.h264"
	tmpJPEG := "/tmp/bridge_remote.jpg"

	if err := os.WriteFile(tmpH264, h264, 0o644); err != nil {
		return
	}
	exec.Command("ffmpeg", "-y", "-i", tmpH264, "-vframes", "1", "-f", "image2", tmpJPEG).Run()

	jpeg, err := os.ReadFile(tmpJPEG)
	if err != nil || len(jpeg) < 1000 {
		return
	}

	r.frameMu.Lock()
	r.latestJPEG = jpeg
	r.frameMu.Unlock()
}

// Read decodes the latest JPEG into dst. False when no frame has arrived
// yet or decoding fails.
func (r *RemoteCamera) Read(dst *gocv.Mat) bool {
	r.frameMu.RLock()
	jpeg := r.latestJPEG
	r.frameMu.RUnlock()

	if jpeg == nil {
		return false
	}

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil || img.Empty() {
		return false
	}
	defer img.Close()

	img.CopyTo(dst)
	return true
}

// Close tears down the peer connection and signalling socket.
func (r *RemoteCamera) Close() error {
	r.closed = true
	if r.pc != nil {
		r.pc.Close()
	}
	if r.ws != nil {
		r.ws.Close()
	}
	return nil
}
