package planner

import (
	"fmt"

	"macro-meal-planner/internal/prefs"
	"macro-meal-planner/internal/recipe"
	"macro-meal-planner/internal/solver"
)

// Tunable scoring constants. These are part of the engine's contract:
// changing them changes observed plan quality.
const (
	// CapPenalty scales the cost of moving a macro past its preferred
	// direction (over on calories/fat/carbs, under on protein/fiber).
	CapPenalty = 1000.0
	// ReusePenalty is charged per slot for recipes already used by earlier
	// plans in the same generation call.
	ReusePenalty = 30.0
	// RatingWeight scales the penalty for low-rated recipes.
	RatingWeight = 8.0
	// ProteinVarietyPenalty is charged per distinct protein category used.
	ProteinVarietyPenalty = 500.0
	// MaxProteinTypes caps distinct protein categories at the strictest tier.
	MaxProteinTypes = 2
)

// BaseMaxDeviation is the per-macro hard-bound half-width before priority
// scaling.
var BaseMaxDeviation = map[recipe.Macro]float64{
	recipe.MacroCalories: 200,
	recipe.MacroProtein:  20,
	recipe.MacroFat:      20,
	recipe.MacroCarbs:    40,
	recipe.MacroFiber:    15,
}

// MacroWeight returns the deviation weight for a macro at the given 1-based
// priority rank.
func MacroWeight(rank int) float64 {
	w := 1000.0 - 200.0*float64(rank-1)
	if w < 200 {
		return 200
	}
	return w
}

// MaxDeviation returns the hard-bound half-width for a macro at the given
// 1-based priority rank: lower-priority macros get wider bounds.
func MaxDeviation(m recipe.Macro, rank int) float64 {
	return BaseMaxDeviation[m] * (1 + 0.5*float64(rank-1))
}

// prefersUpperCap reports whether the macro's preferred direction is to stay
// at or under target (calories, fat, carbs) rather than at or over it
// (protein, fiber).
func prefersUpperCap(m recipe.Macro) bool {
	return m == recipe.MacroCalories || m == recipe.MacroFat || m == recipe.MacroCarbs
}

// ModelInput carries everything the builder needs. HardMacroBounds and
// ProteinCap select the feasibility tier.
type ModelInput struct {
	Recipes         []recipe.Recipe
	Targets         map[recipe.Macro]float64
	Preferences     prefs.Preferences
	NumDays         int
	Slots           []recipe.Category
	PreviouslyUsed  map[string]struct{}
	HardMacroBounds bool
	ProteinCap      bool
}

// assignKey identifies one x[r,d,s] decision variable.
type assignKey struct {
	RecipeIdx int
	Day       int
	Slot      recipe.Category
}

// Model is the built problem plus the variable index needed to read a
// solution back out.
type Model struct {
	Problem   *solver.Problem
	X         map[assignKey]solver.VarID
	BlockSize int
}

// eligible reports whether a recipe may occupy a slot. Normally a recipe is
// only eligible for its own category; combined lunch/dinner mode opens both
// slots to recipes of either category.
func eligible(r recipe.Recipe, slot recipe.Category, combine bool) bool {
	if r.Category == slot {
		return true
	}
	if !combine {
		return false
	}
	isLD := func(c recipe.Category) bool {
		return c == recipe.CategoryLunch || c == recipe.CategoryDinner
	}
	return isLD(r.Category) && isLD(slot)
}

// BuildModel translates the planning inputs into a mixed-integer linear
// program. It is a pure function: the returned model carries no references
// into the input beyond recipe indices.
func BuildModel(in ModelInput) *Model {
	p := solver.NewProblem()
	combine := in.Preferences.CombineLunchDinner

	m := &Model{
		Problem: p,
		X:       make(map[assignKey]solver.VarID),
	}

	// Decision variables: one binary per eligible (recipe, day, slot).
	for ri, r := range in.Recipes {
		for _, slot := range in.Slots {
			if !eligible(r, slot, combine) {
				continue
			}
			for d := 0; d < in.NumDays; d++ {
				key := assignKey{RecipeIdx: ri, Day: d, Slot: slot}
				m.X[key] = p.AddBinary(fmt.Sprintf("x[%s,%d,%s]", r.ID, d, slot))
			}
		}
	}

	// Exactly one recipe per (day, slot).
	for d := 0; d < in.NumDays; d++ {
		for _, slot := range in.Slots {
			var terms []solver.Term
			for ri := range in.Recipes {
				if v, ok := m.X[assignKey{ri, d, slot}]; ok {
					terms = append(terms, solver.Term{Var: v, Coeff: 1})
				}
			}
			p.AddConstraint(terms, solver.EQ, 1)
		}
	}

	// Frequency limit per recipe across the whole plan.
	for ri, r := range in.Recipes {
		var terms []solver.Term
		for d := 0; d < in.NumDays; d++ {
			for _, slot := range in.Slots {
				if v, ok := m.X[assignKey{ri, d, slot}]; ok {
					terms = append(terms, solver.Term{Var: v, Coeff: 1})
				}
			}
		}
		if len(terms) > 0 {
			p.AddConstraint(terms, solver.LE, float64(r.FrequencyLimit))
		}
	}

	// Block grouping: days are partitioned into contiguous blocks sized by
	// the first recipe's frequency limit; assignments repeat within a block
	// so leftovers emerge naturally.
	m.BlockSize = in.NumDays
	if len(in.Recipes) > 0 && in.Recipes[0].FrequencyLimit > 0 && in.Recipes[0].FrequencyLimit < in.NumDays {
		m.BlockSize = in.Recipes[0].FrequencyLimit
	}
	for blockStart := 0; blockStart < in.NumDays; blockStart += m.BlockSize {
		for d := blockStart + 1; d < blockStart+m.BlockSize && d < in.NumDays; d++ {
			for ri := range in.Recipes {
				for _, slot := range in.Slots {
					vd, ok1 := m.X[assignKey{ri, d, slot}]
					vf, ok2 := m.X[assignKey{ri, blockStart, slot}]
					if ok1 && ok2 {
						p.AddConstraint([]solver.Term{{Var: vd, Coeff: 1}, {Var: vf, Coeff: -1}}, solver.EQ, 0)
					}
				}
			}
		}
	}

	// Combined-slot consistency: a dual-eligible recipe commits to lunch
	// slots or dinner slots for the whole plan.
	if combine {
		for ri, r := range in.Recipes {
			if r.Category != recipe.CategoryLunch && r.Category != recipe.CategoryDinner {
				continue
			}
			choice := p.AddBinary(fmt.Sprintf("slot_choice[%s]", r.ID))
			for d := 0; d < in.NumDays; d++ {
				if v, ok := m.X[assignKey{ri, d, recipe.CategoryLunch}]; ok {
					p.AddConstraint([]solver.Term{{Var: v, Coeff: 1}, {Var: choice, Coeff: -1}}, solver.LE, 0)
				}
				if v, ok := m.X[assignKey{ri, d, recipe.CategoryDinner}]; ok {
					p.AddConstraint([]solver.Term{{Var: v, Coeff: 1}, {Var: choice, Coeff: 1}}, solver.LE, 1)
				}
			}
		}
	}

	// Macro constraints per enabled macro and day: hard bounds (tier 1-2),
	// soft directional cap, and the deviation split feeding the objective.
	for _, macro := range recipe.AllMacros {
		target, enabled := in.Targets[macro]
		if !enabled || target <= 0 {
			continue
		}
		rank := in.Preferences.PriorityRank(macro)
		weight := MacroWeight(rank)

		for d := 0; d < in.NumDays; d++ {
			var sum []solver.Term
			for ri, r := range in.Recipes {
				value := r.MacroValue(macro)
				if value == 0 {
					continue
				}
				for _, slot := range in.Slots {
					if v, ok := m.X[assignKey{ri, d, slot}]; ok {
						sum = append(sum, solver.Term{Var: v, Coeff: value})
					}
				}
			}

			if in.HardMacroBounds {
				dev := MaxDeviation(macro, rank)
				p.AddConstraint(sum, solver.GE, target-dev)
				p.AddConstraint(sum, solver.LE, target+dev)
			}

			capSlack := p.AddContinuous(fmt.Sprintf("cap_slack[%s,%d]", macro, d))
			if prefersUpperCap(macro) {
				capped := append(append([]solver.Term(nil), sum...), solver.Term{Var: capSlack, Coeff: -1})
				p.AddConstraint(capped, solver.LE, target)
			} else {
				capped := append(append([]solver.Term(nil), sum...), solver.Term{Var: capSlack, Coeff: 1})
				p.AddConstraint(capped, solver.GE, target)
			}
			p.AddObjectiveTerm(capSlack, CapPenalty/target)

			devPlus := p.AddContinuous(fmt.Sprintf("dev_plus[%s,%d]", macro, d))
			devMinus := p.AddContinuous(fmt.Sprintf("dev_minus[%s,%d]", macro, d))
			split := append(append([]solver.Term(nil), sum...),
				solver.Term{Var: devPlus, Coeff: -1},
				solver.Term{Var: devMinus, Coeff: 1})
			p.AddConstraint(split, solver.EQ, target)
			p.AddObjectiveTerm(devPlus, weight/target)
			p.AddObjectiveTerm(devMinus, weight/target)
		}
	}

	// Protein variety: an indicator per detected protein category, forced on
	// by any assignment of a recipe containing it.
	if in.Preferences.PreferSimilarIngredients {
		proteinVars := make(map[string]solver.VarID)
		for ri, r := range in.Recipes {
			proteins := recipe.DetectProteins(r)
			if len(proteins) == 0 {
				continue
			}
			for _, prot := range proteins {
				useProt, ok := proteinVars[prot]
				if !ok {
					useProt = p.AddBinary(fmt.Sprintf("use_prot[%s]", prot))
					proteinVars[prot] = useProt
					p.AddObjectiveTerm(useProt, ProteinVarietyPenalty)
				}
				for d := 0; d < in.NumDays; d++ {
					for _, slot := range in.Slots {
						if v, ok := m.X[assignKey{ri, d, slot}]; ok {
							p.AddConstraint([]solver.Term{{Var: v, Coeff: 1}, {Var: useProt, Coeff: -1}}, solver.LE, 0)
						}
					}
				}
			}
		}
		if in.ProteinCap && len(proteinVars) > MaxProteinTypes {
			var terms []solver.Term
			for _, v := range proteinVars {
				terms = append(terms, solver.Term{Var: v, Coeff: 1})
			}
			p.AddConstraint(terms, solver.LE, MaxProteinTypes)
		}
	}

	// Per-assignment objective: reuse across plans and rating preference.
	for key, v := range m.X {
		r := in.Recipes[key.RecipeIdx]
		if _, used := in.PreviouslyUsed[r.ID]; used {
			p.AddObjectiveTerm(v, ReusePenalty)
		}
		p.AddObjectiveTerm(v, RatingWeight*(5-r.EffectiveRating())/5)
	}

	return m
}

// Assignments reads the solved x variables back into a day → slot → recipe
// index table.
func (m *Model) Assignments(sol *solver.Solution, numDays int, slots []recipe.Category) map[int]map[recipe.Category]int {
	result := make(map[int]map[recipe.Category]int, numDays)
	for d := 0; d < numDays; d++ {
		result[d] = make(map[recipe.Category]int, len(slots))
	}
	for key, v := range m.X {
		if sol.Value(v) > 0.5 {
			result[key.Day][key.Slot] = key.RecipeIdx
		}
	}
	return result
}
