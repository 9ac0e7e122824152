package boatracetest

import (
	"fmt"
	"strings"
)

// racePage lays out a race page: a heading column followed by the content
// column holding the tabs, the deadline table, the optional notice panel and
// then `blocks` in order.
func racePage(heading string, panel bool, blocks ...string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="ja"><head><meta charset="utf-8"><title>BOAT RACE</title></head><body><main>`)
	b.WriteString(`<div class="l-main"><div class="contentsFrame1"><div class="contentsFrame1_inner">`)

	b.WriteString(`<div class="heading2">`)
	b.WriteString(`<div class="heading2_head">`)
	b.WriteString(`<div class="heading2_area"><img alt="stadium"></div>`)
	b.WriteString(heading)
	b.WriteString(`</div></div>`)

	b.WriteString(`<div class="contents">`)
	b.WriteString(`<div class="tab3"><a href="#">1R</a></div>`)
	b.WriteString(`<div class="table1 h-mt10"><table><tbody><tr><th>締切予定時刻</th>`)
	for race := 1; race <= 12; race++ {
		minutes := 10*60 + 30*race
		fmt.Fprintf(&b, `<td>%02d:%02d</td>`, minutes/60, minutes%60)
	}
	b.WriteString(`</tr></tbody></table></div>`)
	if panel {
		b.WriteString(`<div class="title16"><ul class="textList1"><li>本レースは安定板使用です</li></ul></div>`)
	}
	for _, block := range blocks {
		b.WriteString(block)
	}
	b.WriteString(`</div>`)

	b.WriteString(`</div></div></div></main></body></html>`)
	return b.String()
}

func heading(title, gradeClass string) string {
	return fmt.Sprintf(`<div class="heading2_title %s"><h2>%s</h2></div>`, gradeClass, title)
}

// Deadline returns the deadline written for a race on every race page.
func Deadline(race int) (hour, minute int) {
	minutes := 10*60 + 30*race
	return minutes / 60, minutes % 60
}

type ProgramOptions struct {
	Title      string
	GradeClass string
	Subtitle   string
	Panel      bool
	// Rows are the boat tbody elements, 6 BoatRow values when nil.
	Rows []string
}

// ProgramPage returns a race program (racelist) page.
func ProgramPage(opts ProgramOptions) string {
	if opts.Title == "" {
		opts.Title = "Test Race"
	}
	if opts.GradeClass == "" {
		opts.GradeClass = "is-G1b"
	}
	if opts.Subtitle == "" {
		opts.Subtitle = "予選　　1800m"
	}
	if opts.Rows == nil {
		for n := 1; n <= 6; n++ {
			opts.Rows = append(opts.Rows, BoatRow(n))
		}
	}

	table := `<div class="table1 is-tableFixed__3rdadd"><table>` +
		`<thead><tr><th>枠</th><th>写真</th><th>登録番号/級別 氏名</th><th>F数 L数 平均ST</th><th>全国</th><th>当地</th><th>モーター</th><th>ボート</th></tr></thead>` +
		strings.Join(opts.Rows, "") +
		`</table></div>`

	return racePage(
		heading(opts.Title, opts.GradeClass),
		opts.Panel,
		fmt.Sprintf(`<div class="title16a"><h3 class="title16_titleDetail__add2020">%s</h3></div>`, opts.Subtitle),
		`<div class="h-mt10"></div>`,
		table,
	)
}

func racerClass(n int) string {
	if n%2 == 1 {
		return "A1"
	}
	return "B1"
}

// BoatRow returns a well formed program row for boat n, every value is
// derived from n.
func BoatRow(n int) string {
	return fmt.Sprintf(`<tbody class="is-fs12"><tr>`+
		`<td class="is-boatColor%[1]d is-fs14">%[1]d</td>`+
		`<td><a href="#"><img alt="photo"></a></td>`+
		`<td><div class="is-fs11">%[2]d <span class="">/</span> <span class="is-fColor1">%[3]s</span></div>`+
		`<div class="is-fs18 is-fBold"><a href="#">選手　%[4]s</a></div>`+
		`<div class="is-fs11">東京/東京<br>%[5]d歳/5%[1]d.0kg</div></td>`+
		`<td class="is-lineH2">F%[6]d<br>L0<br>0.1%[1]d</td>`+
		`<td class="is-lineH2">6.%[1]d0<br>4%[1]d.00<br>6%[1]d.00</td>`+
		`<td class="is-lineH2">5.%[1]d0<br>3%[1]d.00<br>5%[1]d.00</td>`+
		`<td class="is-lineH2">%[7]d<br>3%[1]d.50<br>5%[1]d.50</td>`+
		`<td class="is-lineH2">%[8]d<br>2%[1]d.25<br>4%[1]d.25</td>`+
		`</tr><tr><td>R</td></tr></tbody>`,
		n, 4000+n, racerClass(n), kanjiNumber(n), 30+n, n%2, 10+n, 20+n,
	)
}

// MalformedBoatRow returns a program row missing most of its cells.
func MalformedBoatRow() string {
	return `<tbody class="is-fs12"><tr><td>欠場</td></tr></tbody>`
}

func kanjiNumber(n int) string {
	return []string{"零", "一", "二", "三", "四", "五", "六"}[n]
}

func placeholder(class string) string {
	return fmt.Sprintf(`<div class="%s"></div>`, class)
}

// OddsTFPage returns the win and place odds (oddstf) page, win[i] and
// place[i] are the odds text of boat i+1.
func OddsTFPage(panel bool, win, place []string) string {
	unit := func(title string, odds []string) string {
		var b strings.Builder
		fmt.Fprintf(&b, `<div class="grid_unit"><div class="title7"><h3>%s</h3></div><div class="table1"><table>`, title)
		b.WriteString(`<thead><tr><th>枠</th><th>ボートレーサー</th><th>オッズ</th></tr></thead>`)
		for i, value := range odds {
			fmt.Fprintf(
				&b,
				`<tbody><tr><td class="is-boatColor%[1]d">%[1]d</td><td><a href="#">選手　%[2]s</a></td><td class="oddsPoint">%[3]s</td></tr></tbody>`,
				i+1, kanjiNumber(i+1), value,
			)
		}
		b.WriteString(`</table></div></div>`)
		return b.String()
	}

	return racePage(
		heading("Test Race", "is-ippan"),
		panel,
		placeholder("title7"),
		placeholder("h-mt10"),
		placeholder("tab4"),
		`<div class="contentsFrame1_odds"><div class="grid is-type2 h-clear">`+
			unit("単勝オッズ", win)+
			unit("複勝オッズ", place)+
			`</div></div>`,
	)
}

// CombinationOddsPage returns an odds page holding the given tables, see
// CombinationTable.
func CombinationOddsPage(panel bool, tables ...string) string {
	return racePage(
		heading("Test Race", "is-ippan"),
		panel,
		placeholder("title7"),
		placeholder("h-mt10"),
		placeholder("tab4"),
		`<div class="contentsFrame1_odds">`+strings.Join(tables, "")+`</div>`,
	)
}

// columnCombinations lists the combinations under the column of `first`.
func columnCombinations(bet string, first int) [][]int {
	var out [][]int
	for second := 1; second <= 6; second++ {
		if second == first {
			continue
		}
		switch bet {
		case "exacta":
			out = append(out, []int{first, second})
		case "quinella", "quinella-place":
			if second > first {
				out = append(out, []int{first, second})
			}
		case "trifecta", "trio":
			for third := 1; third <= 6; third++ {
				if third == first || third == second {
					continue
				}
				if bet == "trio" && (second < first || third < second) {
					continue
				}
				out = append(out, []int{first, second, third})
			}
		}
	}
	return out
}

// OddsValue is the odds written in CombinationTable for the combination at
// row r of column c (both 0-indexed).
func OddsValue(c, r int) string {
	return fmt.Sprintf("%d.%02d", c+1, r)
}

// CombinationTable returns the odds table of a combination bet type
// ("exacta", "quinella", "quinella-place", "trifecta" or "trio"). Every row
// holds the next combination of every column that still has one, the odds
// of row r in column c is OddsValue(c, r), quinella-place cells hold the
// range OddsValue(c, r) - OddsValue(c+1, r).
func CombinationTable(bet string) string {
	var columns [6][][]int
	rows := 0
	for c := range columns {
		columns[c] = columnCombinations(bet, c+1)
		rows = max(rows, len(columns[c]))
	}

	var b strings.Builder
	b.WriteString(`<div class="table1"><table class="is-w495">`)
	b.WriteString(`<thead><tr>`)
	for c := range columns {
		fmt.Fprintf(&b, `<th class="is-boatColor%[1]d">%[1]d</th><th>選手</th>`, c+1)
	}
	b.WriteString(`</tr></thead><tbody class="is-p3-0">`)
	for r := 0; r < rows; r++ {
		b.WriteString(`<tr>`)
		for c, combinations := range columns {
			if r >= len(combinations) {
				b.WriteString(`<td></td><td></td>`)
				continue
			}
			combination := combinations[r]
			value := OddsValue(c, r)
			if bet == "quinella-place" {
				value = fmt.Sprintf("%s-%s", OddsValue(c, r), OddsValue(c+1, r))
			}
			fmt.Fprintf(
				&b, `<td class="is-boatColor%[1]d">%[1]d</td><td class="oddsPoint">%[2]s</td>`,
				combination[len(combination)-1], value,
			)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table></div>`)
	return b.String()
}

// PreviewPage returns a pre-race information (beforeinfo) page.
func PreviewPage(panel bool) string {
	weather := `<div class="weather1"><div class="weather1_body">` +
		`<div class="weather1_bodyUnit is-direction"><p class="weather1_bodyUnitImage is-direction5"></p><div class="weather1_bodyUnitLabel"><span class="weather1_bodyUnitLabelTitle">気温</span><span class="weather1_bodyUnitLabelData">17.0℃</span></div></div>` +
		`<div class="weather1_bodyUnit is-weather"><p class="weather1_bodyUnitImage is-weather1"></p><div class="weather1_bodyUnitLabel"><span class="weather1_bodyUnitLabelTitle">晴</span></div></div>` +
		`<div class="weather1_bodyUnit is-wind"><div class="weather1_bodyUnitLabel"><span class="weather1_bodyUnitLabelTitle">風速</span><span class="weather1_bodyUnitLabelData">3m</span></div></div>` +
		`<div class="weather1_bodyUnit is-windDirection"><p class="weather1_bodyUnitImage is-wind5"></p></div>` +
		`<div class="weather1_bodyUnit is-waterTemperature"><div class="weather1_bodyUnitLabel"><span class="weather1_bodyUnitLabelTitle">水温</span><span class="weather1_bodyUnitLabelData">16.0℃</span></div></div>` +
		`<div class="weather1_bodyUnit is-wave"><div class="weather1_bodyUnitLabel"><span class="weather1_bodyUnitLabelTitle">波高</span><span class="weather1_bodyUnitLabelData">2cm</span></div></div>` +
		`</div></div>`

	var boats strings.Builder
	boats.WriteString(`<div class="table1"><table class="is-w748">`)
	boats.WriteString(`<thead><tr><th>枠</th><th>写真</th><th>ボートレーサー</th><th>体重</th><th>展示タイム</th><th>チルト</th><th>プロペラ</th><th>部品交換</th><th>前走成績</th></tr></thead>`)
	for n := 1; n <= 6; n++ {
		propeller := ""
		if n == 1 {
			propeller = "新"
		}
		parts := ""
		if n == 2 {
			parts = `<ul class="labelGroup1"><li><span class="label4 is-type1">リング×2</span></li><li><span class="label4 is-type1">ピストン×1</span></li></ul>`
		}
		fmt.Fprintf(
			&boats,
			`<tbody><tr><td class="is-boatColor%[1]d">%[1]d</td><td><img alt="photo"></td><td><a href="#">選手　%[2]s</a></td><td>5%[1]d.0kg</td><td>6.%[1]d0</td><td>-0.5</td><td>%[3]s</td><td>%[4]s</td><td>1</td></tr></tbody>`,
			n, kanjiNumber(n), propeller, parts,
		)
	}
	boats.WriteString(`</table></div>`)

	// course n is taken by boat 7-n, course 2 flew
	var start strings.Builder
	start.WriteString(`<div class="table1"><table class="is-w238"><thead><tr><th>スタート展示</th></tr></thead><tbody>`)
	for course := 1; course <= 6; course++ {
		timing := fmt.Sprintf(".%02d", course)
		if course == 2 {
			timing = "F.01"
		}
		fmt.Fprintf(
			&start,
			`<tr><td><div class="table1_boatImage1"><span class="table1_boatImage1Number is-type%[1]d">%[1]d</span><span class="table1_boatImage1Time">%[2]s</span></div></td></tr>`,
			7-course, timing,
		)
	}
	start.WriteString(`</tbody></table></div>`)

	return racePage(
		heading("Test Race", "is-ippan"),
		panel,
		weather,
		placeholder("h-mt10"),
		boats.String(),
		start.String(),
	)
}

// ResultPage returns a race result (raceresult) page: boats finish in order,
// boat 6 capsized, and the payout table holds every bet type plus an
// unknown one.
func ResultPage() string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="ja"><head><meta charset="utf-8"></head><body><main><div><div><div>`)

	b.WriteString(`<div class="table1"><table class="is-w495"><thead><tr><th>着</th><th>枠</th><th>ボートレーサー</th><th>レースタイム</th></tr></thead>`)
	b.WriteString(`<tbody><tr><td class="is-fs14">１</td><td class="is-boatColor1">1</td><td><span class="is-fs12">3771</span><span class="is-fs18 is-fBold">折下　　寛法</span></td><td>1'49"8</td></tr></tbody>`)
	for n := 2; n <= 5; n++ {
		fmt.Fprintf(
			&b,
			`<tbody><tr><td class="is-fs14">%[1]s</td><td class="is-boatColor%[2]d">%[2]d</td><td><span>%[3]d</span><span>選手　%[4]s</span></td><td>1'5%[2]d"0</td></tr></tbody>`,
			string(rune('０'+n)), n, 4000+n, kanjiNumber(n),
		)
	}
	b.WriteString(`<tbody><tr><td class="is-fs14">転</td><td class="is-boatColor6">6</td><td><span>4006</span><span>選手　六</span></td><td></td></tr></tbody>`)
	b.WriteString(`</table></div>`)

	b.WriteString(`<div class="table1"><table class="is-w243"><thead><tr><th colspan="2">スタート情報</th></tr></thead><tbody>`)
	for course := 1; course <= 6; course++ {
		note := ""
		if course == 1 {
			note = " 逃げ"
		}
		fmt.Fprintf(
			&b,
			`<tr><td><div class="table1_boatImage1"><span class="table1_boatImage1Number">%[1]d</span><span class="table1_boatImage1Time"><span class="table1_boatImage1TimeInner">.1%[1]d%[2]s</span></span></div></td></tr>`,
			course, note,
		)
	}
	b.WriteString(`</tbody></table></div>`)

	b.WriteString(`<div class="table1"><table class="is-w495"><thead><tr><th>勝式</th><th>組番</th><th>払戻金</th><th>人気</th></tr></thead><tbody>`)
	b.WriteString(`<tr><td rowspan="2">3連単</td><td><span class="numberSet1_number">1</span><span class="numberSet1_text">-</span><span class="numberSet1_number">2</span><span class="numberSet1_text">-</span><span class="numberSet1_number">3</span></td><td><span class="is-payout1">¥12,340</span></td><td>5</td></tr>`)
	b.WriteString(`<tr><td></td><td></td><td></td></tr>`)
	b.WriteString(`<tr><td>3連複</td><td>1=2=3</td><td>¥2,340</td><td>3</td></tr>`)
	b.WriteString(`<tr><td>2連単</td><td>1-2</td><td>¥1,230</td><td>2</td></tr>`)
	b.WriteString(`<tr><td>2連複</td><td>1=2</td><td>¥560</td><td>1</td></tr>`)
	b.WriteString(`<tr><td rowspan="3">拡連複</td><td>1=2</td><td>¥230</td><td>1</td></tr>`)
	b.WriteString(`<tr><td>1=3</td><td>¥450</td><td>4</td></tr>`)
	b.WriteString(`<tr><td>2=3</td><td>￥670</td><td>7</td></tr>`)
	b.WriteString(`<tr><td>単勝</td><td>1</td><td>¥150</td><td></td></tr>`)
	b.WriteString(`<tr><td rowspan="2">複勝</td><td>1</td><td>¥110</td><td></td></tr>`)
	b.WriteString(`<tr><td>2</td><td>¥130</td><td></td></tr>`)
	b.WriteString(`<tr><td>特払い</td><td>1</td><td>¥70</td><td></td></tr>`)
	b.WriteString(`</tbody></table></div>`)

	b.WriteString(`<div class="table1"><table class="is-w243"><thead><tr><th>決まり手</th></tr></thead><tbody><tr><td class="is-fs16">逃げ</td></tr></tbody></table></div>`)

	b.WriteString(`</div></div></div></main></body></html>`)
	return b.String()
}

// StadiumsPage returns the daily index page listing the given stadiums.
func StadiumsPage(stadiums ...int) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="ja"><head><meta charset="utf-8"></head><body><main><div class="table1"><table>`)
	b.WriteString(`<thead><tr><th>レース場</th><th>グレード</th></tr></thead>`)
	for _, n := range stadiums {
		fmt.Fprintf(
			&b,
			`<tbody><tr><td class="is-arrow1 is-fBold is-fs15"><a href="/owpc/pc/race/raceindex?jcd=%02[1]d&amp;hd=20240115"><img src="/static_extra/pc/images/text_place1_%02[1]d.png" alt="場%[1]d"></a></td><td class="is-ippan"><span class="grade">一般</span></td></tr></tbody>`,
			n,
		)
	}
	b.WriteString(`</table></div></main></body></html>`)
	return b.String()
}
