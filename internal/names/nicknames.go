package names

import "strings"

// nicknameGroups holds sets of given names treated as interchangeable.
// A name may appear in more than one group (e.g. "jose", "alex"); membership
// is resolved through every group the name belongs to.
var nicknameGroups = [][]string{
	// Common English nicknames
	{"william", "will", "bill", "billy", "willy", "liam"},
	{"robert", "rob", "bob", "bobby", "robbie", "bert"},
	{"richard", "rich", "rick", "ricky", "dick", "richie"},
	{"michael", "mike", "mikey", "mick", "mickey", "miguel"},
	{"james", "jim", "jimmy", "jamie", "jimbo"},
	{"john", "johnny", "jack", "jackie", "jon"},
	{"joseph", "joe", "joey", "jose"},
	{"thomas", "tom", "tommy", "thom"},
	{"charles", "charlie", "chuck", "chas", "chaz"},
	{"christopher", "chris", "kit", "topher"},
	{"matthew", "matt", "matty"},
	{"anthony", "tony", "ant"},
	{"daniel", "dan", "danny"},
	{"david", "dave", "davey"},
	{"kenneth", "ken", "kenny"},
	{"stephen", "steve", "steven", "stevie"},
	{"andrew", "andy", "drew"},
	{"edward", "ed", "eddie", "ted", "teddy", "ned"},
	{"lawrence", "larry", "lars"},
	{"samuel", "sam", "sammy"},
	{"benjamin", "ben", "benny", "benji"},
	{"alexander", "alex", "al", "xander", "lex"},
	{"nicholas", "nick", "nicky", "nico"},

	// Female names
	{"elizabeth", "liz", "lizzie", "beth", "betty", "betsy", "eliza", "lisa"},
	{"margaret", "maggie", "meg", "peggy", "marge", "margie", "greta"},
	{"katherine", "kate", "katie", "kathy", "kat", "kitty", "catherine", "cathy"},
	{"patricia", "pat", "patty", "patsy", "trish", "tricia"},
	{"jennifer", "jen", "jenny"},
	{"jessica", "jess", "jessie"},
	{"deborah", "deb", "debbie", "debby"},
	{"susan", "sue", "susie", "suzy"},
	{"dorothy", "dot", "dottie", "dolly"},
	{"barbara", "barb", "barbie", "babs"},
	{"rebecca", "becca", "becky"},
	{"christine", "chris", "chrissy", "tina"},
	{"victoria", "vicky", "vic", "tori"},
	{"alexandra", "alex", "lexi", "lexie", "sandra", "sandy"},
	{"stephanie", "steph", "stephie"},
	{"michelle", "shelly", "michi"},
	{"kimberly", "kim", "kimmy"},
	{"abigail", "abby", "gail"},
	{"amanda", "mandy", "manda"},
	{"angela", "angie", "angel"},

	// Spanish/Hispanic variations
	{"francisco", "frank", "pancho", "paco", "cisco"},
	{"guadalupe", "lupe", "lupita"},
	{"jose", "pepe", "joe"},
	{"ignacio", "nacho"},
	{"rafael", "rafa"},
	{"enrique", "henry", "quique"},
	{"guillermo", "william", "memo"},
	{"alejandro", "alex", "alejo"},
	{"roberto", "robert", "beto"},

	// Additional variations
	{"gerald", "gerry", "jerry"},
	{"raymond", "ray"},
	{"ronald", "ron", "ronnie"},
	{"donald", "don", "donnie"},
	{"harold", "harry", "hal"},
	{"francis", "frank", "fran"},
	{"eugene", "gene"},
	{"phillip", "phil", "philip"},
	{"timothy", "tim", "timmy"},
	{"gregory", "greg", "gregg"},
}

// Nicknames answers whether two given names are variations of the same name.
// Read-only after construction.
type Nicknames struct {
	groupsByName map[string][]int
}

// NewNicknames builds the reverse lookup over the fixed nickname groups.
func NewNicknames() *Nicknames {
	n := &Nicknames{groupsByName: make(map[string][]int)}
	for idx, group := range nicknameGroups {
		for _, name := range group {
			n.groupsByName[name] = append(n.groupsByName[name], idx)
		}
	}
	return n
}

// Variations returns every known spelling of name, always including the
// (lowercased, trimmed) input itself.
func (n *Nicknames) Variations(name string) map[string]struct{} {
	name = strings.ToLower(strings.TrimSpace(name))
	variations := map[string]struct{}{name: {}}
	for _, idx := range n.groupsByName[name] {
		for _, v := range nicknameGroups[idx] {
			variations[v] = struct{}{}
		}
	}
	return variations
}

// Related reports whether two names share any variation. Empty inputs are
// never related.
func (n *Nicknames) Related(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	va := n.Variations(a)
	for v := range n.Variations(b) {
		if _, ok := va[v]; ok {
			return true
		}
	}
	return false
}
