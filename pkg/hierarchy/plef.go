package hierarchy

import "math"

// defaultMaxPieces caps the piece count of summed energy functions. Older
// pieces describe scales far below the current merge frontier and no longer
// influence apparition scales.
const defaultMaxPieces = 10

// PlefPiece is one linear piece of a piecewise linear energy function,
// valid from StartX onward: f(x) = StartY + Slope*(x - StartX).
type PlefPiece struct {
	StartX float64
	StartY float64
	Slope  float64
}

// Eval evaluates the piece's line at x.
func (p PlefPiece) Eval(x float64) float64 {
	return p.StartY + p.Slope*(x-p.StartX)
}

// Plef is a concave piecewise linear energy function, the per-region
// optimal Mumford-Shah energy as a function of the scale parameter.
// Pieces are kept in ascending StartX order with decreasing slopes.
type Plef struct {
	pieces []PlefPiece
}

// PlefFrom builds a single-piece energy function.
func PlefFrom(piece PlefPiece) Plef {
	return Plef{pieces: []PlefPiece{piece}}
}

func (p Plef) clone() Plef {
	out := make([]PlefPiece, len(p.pieces))
	copy(out, p.pieces)
	return Plef{pieces: out}
}

// Sum returns the pointwise sum of two energy functions, keeping at most
// maxPieces pieces (the highest-scale ones). maxPieces <= 0 selects the
// default cap.
func (p Plef) Sum(other Plef, maxPieces int) Plef {
	if len(other.pieces) == 0 {
		return p.clone()
	}
	if len(p.pieces) == 0 {
		return other.clone()
	}
	if maxPieces <= 0 {
		maxPieces = defaultMaxPieces
	}

	// Walk both functions from the highest StartX down, emitting merged
	// pieces in reverse order.
	rev := make([]PlefPiece, 0, maxPieces)
	i, j := len(p.pieces)-1, len(other.pieces)-1
	for i >= 0 && j >= 0 && len(rev) < maxPieces {
		pi, pj := p.pieces[i], other.pieces[j]
		slope := pi.Slope + pj.Slope
		var x, y float64
		if pi.StartX >= pj.StartX {
			x = pi.StartX
			y = pi.StartY + pj.Eval(x)
			if pi.StartX == pj.StartX {
				j--
			}
			i--
		} else {
			x = pj.StartX
			y = pj.StartY + pi.Eval(x)
			j--
		}
		rev = append(rev, PlefPiece{StartX: x, StartY: y, Slope: slope})
	}

	pieces := make([]PlefPiece, len(rev))
	for k := range rev {
		pieces[len(rev)-1-k] = rev[k]
	}
	// Extend the lowest surviving piece back to scale zero.
	if len(pieces) > 0 && pieces[0].StartX > 0 {
		pieces[0].StartY -= pieces[0].Slope * pieces[0].StartX
		pieces[0].StartX = 0
	}
	return Plef{pieces: pieces}
}

// Infimum takes the pointwise minimum of the function with a new linear
// piece and returns the scale at which the new piece becomes optimal
// (the apparition scale). The receiver is updated in place. Returns +Inf
// when the new piece never drops below the current function.
func (p *Plef) Infimum(other PlefPiece) float64 {
	i := len(p.pieces) - 1
	if i < 0 {
		p.pieces = append(p.pieces, PlefPiece{StartX: 0, StartY: other.Eval(0), Slope: other.Slope})
		return 0
	}

	last := p.pieces[i]
	if other.Slope == last.Slope {
		y := other.Eval(last.StartX)
		switch {
		case y > last.StartY:
			return math.Inf(1)
		case y == last.StartY:
			return last.StartX
		default:
			p.pieces = p.pieces[:i]
			i--
		}
	}

	// Find the crossing point against successively earlier pieces,
	// dropping pieces the new line undercuts entirely.
	xi := 0.0
	for ; i >= 0; i-- {
		piece := p.pieces[i]
		xi = (other.StartX*other.Slope - piece.StartX*piece.Slope - (other.StartY - piece.StartY)) /
			(other.Slope - piece.Slope)
		if xi > piece.StartX {
			break
		}
		p.pieces = p.pieces[:i]
	}

	p.pieces = append(p.pieces, PlefPiece{StartX: xi, StartY: other.Eval(xi), Slope: other.Slope})
	return xi
}

// NumPieces returns the current piece count.
func (p Plef) NumPieces() int {
	return len(p.pieces)
}
