package parser

// parseCondition parses predicates joined by "and"/"or" until a clause
// keyword, a join keyword, ")" or ";".
func (p *parser) parseCondition(idx int, sc *scope, defaults []string) (int, Condition) {
	var conds Condition
	for idx < len(p.toks) {
		var pred Predicate
		if p.at(idx) == "not" {
			pred.Not = true
			idx++
		}

		if p.at(idx) == "exists" {
			pred.Op = OpExists
			idx, pred.Value1 = p.parseValue(idx+1, sc, defaults)
		} else {
			idx, pred.Left = p.parseValUnit(idx, sc, defaults)
			if p.at(idx) == "not" {
				pred.Not = true
				idx++
			}
			op, ok := whereOf(p.at(idx))
			if !ok || op == OpNot {
				p.fail("parse_condition: expected where-op but not found", idx)
				break
			}
			idx++
			pred.Op = op
			if op == OpIs && p.at(idx) == "not" {
				pred.Not = true
				idx++
			}

			idx, pred.Value1 = p.parseValue(idx, sc, defaults)
			if op == OpBetween {
				if p.at(idx) == "and" {
					idx, pred.Value2 = p.parseValue(idx+1, sc, defaults)
				} else {
					p.fail("parse_condition: expected 'and' after between value", idx)
				}
			}
		}
		conds = append(conds, CondItem{Pred: &pred})

		tok := p.at(idx)
		if idx >= len(p.toks) || endsPredicate(tok) {
			break
		}
		if tok == "and" || tok == "or" {
			conds = append(conds, CondItem{Connective: tok})
			idx++
			continue
		}
		p.fail("parse_condition: unexpected token after predicate", idx)
		break
	}
	if n := len(conds); n > 0 && conds[n-1].Pred == nil {
		p.fail("parse_condition: condition ends with a connective", idx)
	}
	return idx, conds
}
