package synthetic

// usCities is the pool synthetic searches draw their location from.
var usCities = []struct{ City, State string }{
	{"Birmingham", "Alabama"},
	{"Anchorage", "Alaska"},
	{"Phoenix", "Arizona"},
	{"Tucson", "Arizona"},
	{"Little Rock", "Arkansas"},
	{"Los Angeles", "California"},
	{"San Diego", "California"},
	{"San Francisco", "California"},
	{"Sacramento", "California"},
	{"Denver", "Colorado"},
	{"Colorado Springs", "Colorado"},
	{"Hartford", "Connecticut"},
	{"Wilmington", "Delaware"},
	{"Miami", "Florida"},
	{"Orlando", "Florida"},
	{"Tampa", "Florida"},
	{"Atlanta", "Georgia"},
	{"Savannah", "Georgia"},
	{"Honolulu", "Hawaii"},
	{"Boise", "Idaho"},
	{"Chicago", "Illinois"},
	{"Springfield", "Illinois"},
	{"Indianapolis", "Indiana"},
	{"Des Moines", "Iowa"},
	{"Wichita", "Kansas"},
	{"Louisville", "Kentucky"},
	{"New Orleans", "Louisiana"},
	{"Portland", "Maine"},
	{"Baltimore", "Maryland"},
	{"Boston", "Massachusetts"},
	{"Detroit", "Michigan"},
	{"Grand Rapids", "Michigan"},
	{"Minneapolis", "Minnesota"},
	{"Jackson", "Mississippi"},
	{"Kansas City", "Missouri"},
	{"St. Louis", "Missouri"},
	{"Billings", "Montana"},
	{"Omaha", "Nebraska"},
	{"Las Vegas", "Nevada"},
	{"Reno", "Nevada"},
	{"Manchester", "New Hampshire"},
	{"Newark", "New Jersey"},
	{"Albuquerque", "New Mexico"},
	{"New York", "New York"},
	{"Buffalo", "New York"},
	{"Charlotte", "North Carolina"},
	{"Raleigh", "North Carolina"},
	{"Fargo", "North Dakota"},
	{"Columbus", "Ohio"},
	{"Cleveland", "Ohio"},
	{"Oklahoma City", "Oklahoma"},
	{"Portland", "Oregon"},
	{"Philadelphia", "Pennsylvania"},
	{"Pittsburgh", "Pennsylvania"},
	{"Providence", "Rhode Island"},
	{"Charleston", "South Carolina"},
	{"Sioux Falls", "South Dakota"},
	{"Nashville", "Tennessee"},
	{"Memphis", "Tennessee"},
	{"Houston", "Texas"},
	{"Austin", "Texas"},
	{"Dallas", "Texas"},
	{"San Antonio", "Texas"},
	{"Salt Lake City", "Utah"},
	{"Burlington", "Vermont"},
	{"Richmond", "Virginia"},
	{"Virginia Beach", "Virginia"},
	{"Seattle", "Washington"},
	{"Spokane", "Washington"},
	{"Charleston", "West Virginia"},
	{"Milwaukee", "Wisconsin"},
	{"Madison", "Wisconsin"},
	{"Cheyenne", "Wyoming"},
}

// DefaultPlaceTypes are the kinds of places synthetic searches look for.
var DefaultPlaceTypes = []string{
	"restaurant",
	"cafe",
	"hospital",
	"hotel",
	"museum",
	"park",
	"shopping mall",
	"gym",
	"library",
	"pharmacy",
	"gas station",
	"supermarket",
	"bank",
	"movie theater",
	"bar",
}
