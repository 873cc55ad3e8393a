package server

import "net/http"

// PlaybackResponse reports the clock after a control operation.
type PlaybackResponse struct {
	Playing  bool    `json:"playing"`
	Time     float64 `json:"time"`
	Progress float64 `json:"progress"`
	Speed    float64 `json:"speed"`
}

func playbackResponse(s *Session) PlaybackResponse {
	progress, _, now, playing := s.Progress()
	return PlaybackResponse{Playing: playing, Time: now, Progress: progress, Speed: s.Speed()}
}

func handlePlay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		s.Play()
		writeJSON(w, http.StatusOK, playbackResponse(s))
	}
}

func handlePause() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		s.Pause()
		writeJSON(w, http.StatusOK, playbackResponse(s))
	}
}

func handleToggle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		s.Toggle()
		writeJSON(w, http.StatusOK, playbackResponse(s))
	}
}

// SpeedRequest is the body for PUT /speed.
type SpeedRequest struct {
	Multiplier float64 `json:"multiplier"`
}

func handleSpeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SpeedRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Multiplier <= 0 {
			writeError(w, http.StatusBadRequest, "multiplier must be positive")
			return
		}

		s := sessionFrom(r)
		s.SetSpeed(req.Multiplier)
		writeJSON(w, http.StatusOK, playbackResponse(s))
	}
}

// SeekRequest carries either an absolute time or a fraction of the race
// window. Out-of-range values are clamped, never rejected.
type SeekRequest struct {
	Time    *float64 `json:"time,omitempty"`
	Percent *float64 `json:"percent,omitempty"`
}

func handleSeek() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Time == nil && req.Percent == nil {
			writeError(w, http.StatusBadRequest, "time or percent is required")
			return
		}

		s := sessionFrom(r)
		if req.Time != nil {
			s.SeekTime(*req.Time)
		} else {
			s.SeekPercent(*req.Percent)
		}
		writeJSON(w, http.StatusOK, playbackResponse(s))
	}
}

// ProgressResponse reports playback progress for slider-style UIs.
type ProgressResponse struct {
	Progress float64 `json:"progress"`
	Duration float64 `json:"duration"`
	Time     float64 `json:"time"`
	Playing  bool    `json:"playing"`
}

func handleProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		progress, duration, now, playing := s.Progress()
		writeJSON(w, http.StatusOK, ProgressResponse{
			Progress: progress,
			Duration: duration,
			Time:     now,
			Playing:  playing,
		})
	}
}
