package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dgallion1/mocapd/internal/skeleton"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
)

// handleListClips lists summaries of all ingested clips, newest first.
func (s *Server) handleListClips(w http.ResponseWriter, r *http.Request) {
	clips := s.orchestrator.Clips().List()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"clips": clips})
}

// handleGetClip returns one clip's summary.
func (s *Server) handleGetClip(w http.ResponseWriter, r *http.Request) {
	clip := s.orchestrator.Clips().Get(chi.URLParam(r, "clipID"))
	if clip == nil {
		jsonError(w, "clip not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(clip.Summary())
}

// handleClipJoints returns the skeleton tree: names, offsets, channels,
// children and end-site markers.
func (s *Server) handleClipJoints(w http.ResponseWriter, r *http.Request) {
	clip := s.orchestrator.Clips().Get(chi.URLParam(r, "clipID"))
	if clip == nil {
		jsonError(w, "clip not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"root": clip.Doc.Root})
}

// handleJointFrame samples one joint's channel values at one frame: the
// query surface the retargeting driver polls while previewing a clip.
func (s *Server) handleJointFrame(w http.ResponseWriter, r *http.Request) {
	clip := s.orchestrator.Clips().Get(chi.URLParam(r, "clipID"))
	if clip == nil {
		jsonError(w, "clip not found", http.StatusNotFound)
		return
	}
	joint := chi.URLParam(r, "joint")
	frame, err := strconv.Atoi(chi.URLParam(r, "frame"))
	if err != nil {
		jsonError(w, "frame must be an integer", http.StatusBadRequest)
		return
	}

	values, err := clip.Doc.Sample(joint, frame)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	node := clip.Doc.Find(joint)
	channels := make([]skeleton.ChannelKind, len(node.Channels))
	copy(channels, node.Channels)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"joint":    joint,
		"frame":    frame,
		"channels": channels,
		"values":   values,
	})
}

// handleExportClip streams the whole document as CBOR for binary-friendly
// consumers.
func (s *Server) handleExportClip(w http.ResponseWriter, r *http.Request) {
	clip := s.orchestrator.Clips().Get(chi.URLParam(r, "clipID"))
	if clip == nil {
		jsonError(w, "clip not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	if err := cbor.NewEncoder(w).Encode(clip.Doc); err != nil {
		s.log.Error("cbor export failed", "clip_id", clip.ID, "error", err)
	}
}

// handleDeleteClip removes a clip locally and from rigstore.
func (s *Server) handleDeleteClip(w http.ResponseWriter, r *http.Request) {
	clipID := chi.URLParam(r, "clipID")
	if !s.orchestrator.Clips().Delete(clipID) {
		jsonError(w, "clip not found", http.StatusNotFound)
		return
	}
	remoteDeleted := true
	if err := s.orchestrator.Rigstore().DeleteClip(r.Context(), clipID); err != nil {
		s.log.Warn("rigstore delete failed", "clip_id", clipID, "error", err)
		remoteDeleted = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"clip_id":         clipID,
		"deleted":         true,
		"rigstore_purged": remoteDeleted,
	})
}
