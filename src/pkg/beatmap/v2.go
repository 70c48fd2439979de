package beatmap

// v2 note and event types that do not map to plain notes or lights
const (
	v2NoteBomb           = 3
	v2EventColorBoost    = 5
	v2EventEarlyRotation = 14
	v2EventLateRotation  = 15
	v2EventBpmChange     = 100
)

// v2RotationSteps maps a v2 rotation event value to degrees
var v2RotationSteps = []float64{-60, -45, -30, -15, 15, 30, 45, 60}

// isV2 reports whether a difficulty document uses the v2 layout
func isV2(doc map[string]any) bool {
	if _, v3 := doc["version"]; v3 {
		return false
	}
	for _, key := range []string{"_version", "_notes", "_obstacles", "_events"} {
		if _, ok := doc[key]; ok {
			return true
		}
	}
	return false
}

// convertV2 rewrites a v2 difficulty document into the v3 layout
func convertV2(doc map[string]any) map[string]any {
	out := map[string]any{}
	appendTo := func(key string, item map[string]any) {
		list, _ := out[key].([]any)
		out[key] = append(list, item)
	}

	for _, n := range v2Items(doc, "_notes") {
		base := map[string]any{
			"b": num(n, "_time"),
			"x": num(n, "_lineIndex"),
			"y": num(n, "_lineLayer"),
		}
		switch t := num(n, "_type"); t {
		case 0, 1:
			base["c"] = t
			base["d"] = num(n, "_cutDirection")
			appendTo("colorNotes", base)
		case v2NoteBomb:
			appendTo("bombNotes", base)
		}
	}

	for _, o := range v2Items(doc, "_obstacles") {
		y, h := 0.0, 5.0
		switch {
		case has(o, "_lineLayer"):
			y, h = num(o, "_lineLayer"), num(o, "_height")
		case num(o, "_type") == 1:
			y, h = 2, 3
		}
		appendTo("obstacles", map[string]any{
			"b": num(o, "_time"),
			"x": num(o, "_lineIndex"),
			"y": y,
			"d": num(o, "_duration"),
			"w": num(o, "_width"),
			"h": h,
		})
	}

	for _, e := range v2Items(doc, "_events") {
		b := num(e, "_time")
		value := num(e, "_value")
		switch t := num(e, "_type"); t {
		case v2EventColorBoost:
			o := 0.0
			if value == 1 {
				o = 1
			}
			appendTo("colorBoostBeatmapEvents", map[string]any{"b": b, "o": o})
		case v2EventEarlyRotation, v2EventLateRotation:
			r := 0.0
			if i := int(value); i >= 0 && i < len(v2RotationSteps) {
				r = v2RotationSteps[i]
			}
			appendTo("rotationEvents", map[string]any{"b": b, "e": t - v2EventEarlyRotation, "r": r})
		case v2EventBpmChange:
			appendTo("bpmEvents", map[string]any{"b": b, "m": num(e, "_floatValue")})
		default:
			f := 1.0
			if has(e, "_floatValue") {
				f = num(e, "_floatValue")
			}
			appendTo("basicBeatmapEvents", map[string]any{"b": b, "et": t, "i": value, "f": f})
		}
	}

	for _, s := range v2Items(doc, "_sliders") {
		appendTo("sliders", map[string]any{
			"b":   num(s, "_headTime"),
			"c":   num(s, "_colorType"),
			"x":   num(s, "_headLineIndex"),
			"y":   num(s, "_headLineLayer"),
			"d":   num(s, "_headCutDirection"),
			"mu":  num(s, "_headControlPointLengthMultiplier"),
			"tb":  num(s, "_tailTime"),
			"tx":  num(s, "_tailLineIndex"),
			"ty":  num(s, "_tailLineLayer"),
			"tc":  num(s, "_tailCutDirection"),
			"tmu": num(s, "_tailControlPointLengthMultiplier"),
			"m":   num(s, "_sliderMidAnchorMode"),
		})
	}

	for _, w := range v2Items(doc, "_waypoints") {
		appendTo("waypoints", map[string]any{
			"b": num(w, "_time"),
			"x": num(w, "_lineIndex"),
			"y": num(w, "_lineLayer"),
			"d": num(w, "_offsetDirection"),
		})
	}

	return out
}

// v2Items returns the object entries of a v2 array, skipping anything else
func v2Items(doc map[string]any, key string) []map[string]any {
	list, _ := doc[key].([]any)
	items := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// num reads a numeric field, missing or non-numeric fields are 0
func num(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}
