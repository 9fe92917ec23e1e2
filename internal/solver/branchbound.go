package solver

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	// integralityTol decides when a relaxed binary counts as integral.
	integralityTol = 1e-6
	// maxNodes bounds the search tree independently of the time limit.
	maxNodes = 200000
)

// BranchAndBound is a depth-first branch-and-bound MILP solver. The LP
// relaxation at each node is solved with gonum's simplex method; binaries are
// relaxed to [0,1] and fixed one at a time while branching.
type BranchAndBound struct{}

// NewBranchAndBound creates the default solver.
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{}
}

// standardForm holds the problem converted to "minimize c'x, Ax = b, x >= 0":
// every inequality row carries its own slack column.
type standardForm struct {
	c    []float64
	rows [][]float64 // dense rows of length cols
	b    []float64
	cols int
	n    int // original variable count (prefix of each row)
}

// node fixes a subset of the binaries to 0 or 1.
type node struct {
	fixedVar []int
	fixedVal []float64
}

// Solve runs branch-and-bound until optimality, infeasibility, the node cap,
// or the time limit.
func (s *BranchAndBound) Solve(ctx context.Context, p *Problem, timeLimit time.Duration) (*Solution, error) {
	deadline := time.Now().Add(timeLimit)

	sf := buildStandardForm(p)

	var (
		bestObj    = math.Inf(1)
		bestValues []float64
		stack      = []node{{}}
		visited    = 0
		timedOut   = false
	)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			timedOut = true
			break
		}
		visited++
		if visited > maxNodes {
			timedOut = true
			break
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		obj, values, err := solveRelaxation(sf, current)
		if err != nil {
			// Infeasible or degenerate node: prune.
			continue
		}
		if obj >= bestObj-1e-9 {
			continue
		}

		branchVar := mostFractionalBinary(p, values)
		if branchVar < 0 {
			// Integral solution: new incumbent.
			bestObj = obj
			bestValues = append([]float64(nil), values[:sf.n]...)
			continue
		}

		frac := values[branchVar]
		// Explore the nearer bound first (it is pushed last).
		first, second := 0.0, 1.0
		if frac >= 0.5 {
			first, second = 1.0, 0.0
		}
		stack = append(stack, child(current, branchVar, second))
		stack = append(stack, child(current, branchVar, first))
	}

	if bestValues == nil {
		if timedOut {
			return &Solution{Status: StatusTimeLimit}, nil
		}
		return &Solution{Status: StatusInfeasible}, nil
	}
	if timedOut {
		// A feasible incumbent exists but optimality was not proven.
		return &Solution{Status: StatusTimeLimit, Objective: bestObj, values: bestValues}, nil
	}
	return &Solution{Status: StatusOptimal, Objective: bestObj, values: bestValues}, nil
}

func child(parent node, varIdx int, val float64) node {
	return node{
		fixedVar: append(append([]int(nil), parent.fixedVar...), varIdx),
		fixedVal: append(append([]float64(nil), parent.fixedVal...), val),
	}
}

// mostFractionalBinary returns the index of the binary farthest from an
// integer value, or -1 when all binaries are integral.
func mostFractionalBinary(p *Problem, values []float64) int {
	best, bestDist := -1, integralityTol
	for i, v := range p.vars {
		if v.kind != Binary {
			continue
		}
		dist := math.Abs(values[i] - math.Round(values[i]))
		if dist > bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// buildStandardForm converts the problem into equality standard form. Each
// <= row gains a slack column; >= rows are negated into <= first; binaries
// get an upper-bound row x <= 1.
func buildStandardForm(p *Problem) *standardForm {
	n := len(p.vars)

	type rawRow struct {
		coeffs map[int]float64
		sense  Sense
		rhs    float64
	}

	rows := make([]rawRow, 0, len(p.constraints)+n)
	for _, c := range p.constraints {
		coeffs := make(map[int]float64, len(c.Terms))
		for _, t := range c.Terms {
			coeffs[int(t.Var)] += t.Coeff
		}
		rows = append(rows, rawRow{coeffs: coeffs, sense: c.Sense, rhs: c.RHS})
	}
	for i, v := range p.vars {
		if v.kind == Binary {
			rows = append(rows, rawRow{coeffs: map[int]float64{i: 1}, sense: LE, rhs: 1})
		}
	}

	// Count slack columns.
	slacks := 0
	for _, r := range rows {
		if r.sense != EQ {
			slacks++
		}
	}
	cols := n + slacks

	sf := &standardForm{
		c:    make([]float64, cols),
		b:    make([]float64, 0, len(rows)),
		cols: cols,
		n:    n,
	}
	for v, coeff := range p.objective {
		sf.c[int(v)] = coeff
	}

	slackCol := n
	for _, r := range rows {
		dense := make([]float64, cols)
		sign := 1.0
		if r.sense == GE {
			sign = -1.0
		}
		for idx, coeff := range r.coeffs {
			dense[idx] = sign * coeff
		}
		rhs := sign * r.rhs
		if r.sense != EQ {
			dense[slackCol] = 1
			slackCol++
		}
		sf.rows = append(sf.rows, dense)
		sf.b = append(sf.b, rhs)
	}

	return sf
}

// solveRelaxation solves the LP relaxation with the node's binaries pinned by
// extra equality rows.
func solveRelaxation(sf *standardForm, nd node) (float64, []float64, error) {
	rows := len(sf.rows) + len(nd.fixedVar)
	data := make([]float64, 0, rows*sf.cols)
	b := make([]float64, 0, rows)

	for i, row := range sf.rows {
		data = append(data, row...)
		b = append(b, sf.b[i])
	}
	for i, varIdx := range nd.fixedVar {
		fixed := make([]float64, sf.cols)
		fixed[varIdx] = 1
		data = append(data, fixed...)
		b = append(b, nd.fixedVal[i])
	}

	// Simplex phase one wants non-negative right-hand sides; scaling a row
	// by -1 leaves its solution set unchanged.
	for i := range b {
		if b[i] < 0 {
			b[i] = -b[i]
			for j := 0; j < sf.cols; j++ {
				data[i*sf.cols+j] = -data[i*sf.cols+j]
			}
		}
	}

	a := mat.NewDense(rows, sf.cols, data)
	obj, x, err := lp.Simplex(sf.c, a, b, 1e-10, nil)
	if err != nil {
		return 0, nil, err
	}
	return obj, x, nil
}
