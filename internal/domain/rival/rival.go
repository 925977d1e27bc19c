// Package rival compares two users' point totals and produces a
// relative-standing message. It is a pure function of resolved profiles;
// resolution against the durable store happens in the caller.
package rival

import (
	"fmt"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

// Standing messages.
const (
	msgNoRival   = "You don't have a rival yet. Start matching to find one!"
	msgRivalLeft = "Your rival left the ladder. Time to find a new one."
	msgTied      = "You and your rival are tied. It's anyone's game!"
)

func profileOf(u model.User) types.RivalProfile {
	return types.RivalProfile{
		UserID:       u.ID,
		Name:         u.MaskedName(),
		TotalPoint:   u.TotalPoint,
		ProfileImage: u.ProfileImage,
		Tier:         u.MembershipTier,
	}
}

// Compare produces the comparison outcome for me against rival.
//
// Three outcomes exist: no rival assigned (rival is nil and me has no rival
// id), rival assigned but no longer resolvable (rival is nil despite an
// assignment, "rival left"), and both resolved. PointGap is |delta| and is
// zero exactly in the first two outcomes or on a tie.
func Compare(me model.User, rival *model.User) types.RivalComparison {
	if rival == nil {
		msg := msgNoRival
		if me.RivalID != nil {
			msg = msgRivalLeft
		}
		return types.RivalComparison{
			HasRival:  false,
			MyProfile: profileOf(me),
			PointGap:  0,
			Message:   msg,
		}
	}

	gap := me.TotalPoint - rival.TotalPoint
	var msg string
	switch {
	case gap > 0:
		msg = fmt.Sprintf("You're %d points ahead of your rival!", gap)
	case gap < 0:
		msg = fmt.Sprintf("You're %d points behind your rival. Keep going!", -gap)
	default:
		msg = msgTied
	}

	rp := profileOf(*rival)
	if gap < 0 {
		gap = -gap
	}
	return types.RivalComparison{
		HasRival:     true,
		MyProfile:    profileOf(me),
		RivalProfile: &rp,
		PointGap:     gap,
		Message:      msg,
	}
}
