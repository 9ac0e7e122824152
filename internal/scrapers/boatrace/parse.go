package boatrace

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"bvpscraper/internal/components/chrono"
	"bvpscraper/lib/textutil"
)

var (
	deadlineRegex  = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	distanceRegex  = regexp.MustCompile(`\s*(\d+)m$`)
	ageRegex       = regexp.MustCompile(`(\d+)歳`)
	weightRegex    = regexp.MustCompile(`(\d+(?:\.\d+)?)kg`)
	racerClass     = regexp.MustCompile(`[AB][12]`)
	racerRegex     = regexp.MustCompile(`^(\d+)\s*(\D+)$`)
	raceTimeRegex  = regexp.MustCompile(`^(\d+)'(\d+)"(\d+)$`)
	windClassRegex = regexp.MustCompile(`^is-wind(\d+)$`)
)

// parseClosedAt combines an HH:MM deadline with the race date.
func parseClosedAt(text *string, date time.Time) *time.Time {
	if text == nil {
		return nil
	}
	groups := deadlineRegex.FindStringSubmatch(*text)
	if groups == nil {
		return nil
	}
	hour, _ := strconv.Atoi(groups[1])
	minute, _ := strconv.Atoi(groups[2])
	if hour > 23 || minute > 59 {
		return nil
	}
	date = chrono.Date(date)
	closedAt := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, chrono.JST())
	return &closedAt
}

// parseSubtitleDistance splits a trailing "<digits>m" off the subtitle.
func parseSubtitleDistance(text *string) (subtitle *string, distance *int) {
	if text == nil {
		return nil, nil
	}
	rest := *text
	if groups := distanceRegex.FindStringSubmatchIndex(rest); groups != nil {
		n, err := strconv.Atoi(rest[groups[2]:groups[3]])
		if err == nil {
			distance = &n
			rest = rest[:groups[0]]
		}
	}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		subtitle = &rest
	}
	return subtitle, distance
}

// parseRacerNumberClass reads a "4444 / A1" cell.
func parseRacerNumberClass(text *string) (number *int, class *string) {
	if text == nil {
		return nil, nil
	}
	if n, ok := textutil.FirstInt(*text); ok {
		number = &n
	}
	if c := racerClass.FindString(*text); c != "" {
		class = &c
	}
	return number, class
}

// parsePersonal reads the age and weight out of the branch, birthplace, age
// and weight block.
func parsePersonal(lines []string) (age *int, weight *float64) {
	joined := strings.Join(lines, " ")
	if groups := ageRegex.FindStringSubmatch(joined); groups != nil {
		n, err := strconv.Atoi(groups[1])
		if err == nil {
			age = &n
		}
	}
	if groups := weightRegex.FindStringSubmatch(joined); groups != nil {
		f, err := strconv.ParseFloat(groups[1], 64)
		if err == nil {
			weight = &f
		}
	}
	return age, weight
}

func parseFlyingLateStart(lines []string) (flying, late *int, averageStart *float64) {
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "F"):
			if n, ok := textutil.FirstInt(line); ok {
				flying = &n
			}
		case strings.HasPrefix(line, "L"):
			if n, ok := textutil.FirstInt(line); ok {
				late = &n
			}
		default:
			if f, ok := textutil.ParseFloat(line); ok {
				averageStart = &f
			}
		}
	}
	return flying, late, averageStart
}

// parsePercentages parses every line as a decimal, the result is right
// padded with nil up to 3 slots.
func parsePercentages(lines []string) [3]*float64 {
	var out [3]*float64
	i := 0
	for _, line := range lines {
		if i >= len(out) {
			break
		}
		f, ok := textutil.ParseFloat(strings.TrimSuffix(line, "%"))
		if !ok {
			continue
		}
		out[i] = &f
		i++
	}
	return out
}

// parseAssignment reads a motor or boat block, the first integer line is the
// assigned number and the next decimal lines are the top-2 and top-3
// percentages.
func parseAssignment(lines []string) (number *int, top2, top3 *float64) {
	var percentages []*float64
	for _, line := range lines {
		if number == nil {
			if n, ok := textutil.ParseInt(line); ok {
				number = &n
			}
			continue
		}
		if len(percentages) == 2 {
			break
		}
		if f, ok := textutil.ParseFloat(strings.TrimSuffix(line, "%")); ok {
			percentages = append(percentages, &f)
		}
	}
	if len(percentages) > 0 {
		top2 = percentages[0]
	}
	if len(percentages) > 1 {
		top3 = percentages[1]
	}
	return number, top2, top3
}

// parsePosition accepts a single ASCII or full-width digit between 1 and 6.
func parsePosition(text string) (int, bool) {
	text = textutil.Normalize(text)
	if len(text) != 1 {
		return 0, false
	}
	n := int(text[0] - '0')
	if n < 1 || n > 6 {
		return 0, false
	}
	return n, true
}

// parseRacer splits the leading registration number from the racer name.
func parseRacer(text string) (number *int, name *string) {
	groups := racerRegex.FindStringSubmatch(textutil.Normalize(text))
	if groups == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(groups[1])
	if err == nil {
		number = &n
	}
	cleaned := textutil.Normalize(groups[2])
	if cleaned != "" {
		name = &cleaned
	}
	return number, name
}

// parseRaceTime converts a time like 1'49"8 into seconds.
func parseRaceTime(text string) *float64 {
	groups := raceTimeRegex.FindStringSubmatch(textutil.Compact(text))
	if groups == nil {
		return nil
	}
	minutes, _ := strconv.Atoi(groups[1])
	seconds, _ := strconv.Atoi(groups[2])
	fraction, err := strconv.ParseFloat("0."+groups[3], 64)
	if err != nil {
		return nil
	}
	total := float64(minutes*60+seconds) + fraction
	return &total
}

// parsePayoutAmount reads a yen amount like ¥12,340.
func parsePayoutAmount(text string) (int, bool) {
	text = textutil.Normalize(text)
	text = strings.TrimPrefix(text, "¥")
	text = strings.TrimPrefix(text, "￥")
	text = strings.TrimSuffix(text, "円")
	n, ok := textutil.ParseInt(text)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseStartTiming reads a start timing like ".12", "F.03" or ".08 まくり".
func parseStartTiming(text string) (timing *float64, flying, late bool, note *string) {
	fields := strings.Fields(textutil.Normalize(text))
	if len(fields) == 0 {
		return nil, false, false, nil
	}
	head := fields[0]
	switch {
	case strings.HasPrefix(head, "F"):
		flying = true
		head = head[1:]
	case strings.HasPrefix(head, "L"):
		late = true
		head = head[1:]
	}
	if f, ok := textutil.ParseFloat(head); ok {
		timing = &f
	}
	if len(fields) > 1 {
		rest := strings.Join(fields[1:], " ")
		note = &rest
	}
	return timing, flying, late, note
}

// parseWindDirection reads the direction (1-16) out of an is-windN class.
func parseWindDirection(class string) *int {
	for _, token := range strings.Fields(class) {
		groups := windClassRegex.FindStringSubmatch(token)
		if groups == nil {
			continue
		}
		n, err := strconv.Atoi(groups[1])
		if err != nil || n < 1 || n > 16 {
			continue
		}
		return &n
	}
	return nil
}
