package httpapi

import (
	"treasure-chess/internal/domain"
	"treasure-chess/internal/match"
	"treasure-chess/pkg/matchdto"
)

func stateDTO(st match.State) *matchdto.MatchState {
	dto := &matchdto.MatchState{
		Phase:      string(st.Phase),
		Mode:       string(st.Mode),
		White:      st.White,
		Black:      st.Black,
		LocalColor: string(st.LocalColor),
		FEN:        st.FEN,
		Turn:       string(st.Turn),
		MovesSAN:   st.MovesSAN,
		MovesUCI:   st.MovesUCI,
		Status:     statusDTO(st.Status),
		Outcome: matchdto.Outcome{
			Kind:   string(st.Outcome.Kind),
			Winner: st.Outcome.Winner,
		},
		StatusText: st.StatusText,
		Diverged:   st.Diverged,
	}
	if st.LastMove != nil {
		dto.LastMove = &matchdto.LastMove{
			UCI:       st.LastMove.UCI,
			SAN:       st.LastMove.SAN,
			Captured:  st.LastMove.Captured,
			Check:     st.LastMove.Check,
			Checkmate: st.LastMove.Checkmate,
		}
	}
	return dto
}

func statusDTO(s domain.Status) matchdto.Status {
	return matchdto.Status{
		Kind:   string(s.Kind),
		Turn:   string(s.Turn),
		By:     s.By,
		Reason: s.Reason,
	}
}
