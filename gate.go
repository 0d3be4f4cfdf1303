package main

import (
	"errors"
	"net/http"
)

// memberCookieName holds the membership token on the caller's side. The
// server only ever matches its value against the stored members list.
const memberCookieName = "member_token"

// handleRoomPage is the entry gate in front of a room's address: it runs the
// admission decision and issues the membership cookie before the client ever
// reaches the realtime endpoint. Rejections redirect to the lobby with a
// reason code.
func (s *Server) handleRoomPage(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")

	presented := ""
	if ck, err := r.Cookie(memberCookieName); err == nil {
		presented = ck.Value
	}

	dec, err := s.admission.Admit(r.Context(), roomID, presented)
	switch {
	case errors.Is(err, ErrRoomNotFound):
		http.Redirect(w, r, "/?error=room-not-found", http.StatusSeeOther)
		return
	case errors.Is(err, ErrRoomFull):
		http.Redirect(w, r, "/?error=room-full", http.StatusSeeOther)
		return
	case err != nil:
		s.log.Error().Err(err).Str("room", roomID).Msg("gate admission failed")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	if dec.Issued {
		http.SetCookie(w, &http.Cookie{
			Name:     memberCookieName,
			Value:    dec.Token,
			Path:     "/room/" + roomID,
			HttpOnly: true,
			Secure:   s.secureCookies(),
			SameSite: http.SameSiteStrictMode,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(roomHTML))
}

func (s *Server) secureCookies() bool {
	return s.cfg.TLSCert != "" || s.cfg.Environment == "production"
}
