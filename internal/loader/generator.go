package loader

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/deshmukhh/crease/internal/adapters/rowstore"
)

// Synthetic league constants.
const (
	oversPerInnings   = 20
	ballsPerOver      = 6
	firstSeason       = 2016
	seasonCount       = 8
	battersPerSide    = 6
	wicketChancePct   = 5
	extraChancePct    = 6
	boundaryChancePct = 18
)

var synthTeams = []string{
	"Chennai Super Kings",
	"Mumbai Indians",
	"Royal Challengers Bangalore",
	"Kolkata Knight Riders",
	"Delhi Capitals",
	"Rajasthan Royals",
}

var synthVenues = []string{
	"MA Chidambaram Stadium",
	"Wankhede Stadium",
	"M Chinnaswamy Stadium",
	"Eden Gardens",
	"Arun Jaitley Stadium",
	"Sawai Mansingh Stadium",
}

var bowlingStyles = []string{"fast", "fast-medium", "legbreak", "offbreak", "left-arm orthodox"}

var battingHands = []string{"RHB", "RHB", "RHB", "LHB"}

// randInt returns a random int in [0, n) using crypto/rand.
func randInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// rosterFor builds a stable per-team roster so the same names recur
// across matches and seasons.
func rosterFor(team string, size int) []string {
	initial := team[0:1]
	names := make([]string, size)
	for i := range names {
		names[i] = fmt.Sprintf("%s Player%d", initial, i+1)
	}
	return names
}

// Generate produces synthetic matches for seeding a demo event log.
// Every match is two 20-over innings between two league teams.
func Generate(matches int) []rowstore.Delivery {
	var out []rowstore.Delivery

	for m := 0; m < matches; m++ {
		home := randInt(len(synthTeams))
		away := randInt(len(synthTeams) - 1)
		if away >= home {
			away++
		}
		matchID := fmt.Sprintf("synth-%04d", m+1)
		season := firstSeason + randInt(seasonCount)
		venue := synthVenues[home]
		winner := synthTeams[home]
		if randInt(2) == 1 {
			winner = synthTeams[away]
		}

		out = append(out, generateInnings(matchID, season, venue, winner, synthTeams[home], synthTeams[away])...)
		out = append(out, generateInnings(matchID, season, venue, winner, synthTeams[away], synthTeams[home])...)
	}
	return out
}

func generateInnings(matchID string, season int, venue, winner, batting, bowling string) []rowstore.Delivery {
	batters := rosterFor(batting, battersPerSide)
	bowlers := rosterFor(bowling, battersPerSide)

	var out []rowstore.Delivery
	striker := 0
	wickets := 0

	for over := 1; over <= oversPerInnings; over++ {
		bowler := bowlers[randInt(len(bowlers))]
		style := bowlingStyles[randInt(len(bowlingStyles))]

		for ball := 0; ball < ballsPerOver; ball++ {
			if wickets >= battersPerSide-1 {
				return out
			}

			d := rowstore.Delivery{
				MatchID:     matchID,
				Season:      season,
				Venue:       venue,
				Over:        over,
				Valid:       true,
				Batter:      batters[striker],
				Bowler:      bowler,
				BattingTeam: batting,
				BowlingTeam: bowling,
				BowlingType: normalizeBowlingStyle(style),
				BattingHand: battingHands[randInt(len(battingHands))],
				Winner:      winner,
			}

			switch {
			case randInt(100) < wicketChancePct:
				d.IsWicket = true
				d.Dismissed = batters[striker]
				wickets++
				striker = wickets % battersPerSide

			case randInt(100) < extraChancePct:
				// A wide: no legal ball, one extra, same batter faces again.
				d.Valid = false
				d.RunsTotal = 1
				out = append(out, d)
				ball--
				continue

			case randInt(100) < boundaryChancePct:
				if randInt(3) == 0 {
					d.RunsOffBat = 6
					d.IsSix = true
				} else {
					d.RunsOffBat = 4
					d.IsFour = true
				}
				d.RunsTotal = d.RunsOffBat

			default:
				d.RunsOffBat = randInt(3)
				d.RunsTotal = d.RunsOffBat
				if d.RunsOffBat%2 == 1 {
					striker = (striker + 1) % battersPerSide
				}
			}

			out = append(out, d)
		}
	}
	return out
}
