package domain

import "sort"

var EventTypes = []string{"Wedding", "Birthday", "Conference", "Meeting", "Festival"}

var FoodPreferences = []string{"Veg", "Non-Veg", "Vegan", "Mixed Menu"}

var Districts = []string{
	"Chennai", "Delhi", "Bengaluru", "Madurai", "Theni", "Trichy",
	"Thirutani", "Salem", "Erode", "Namakkal", "Karur", "Ooty",
}

type VenueKind string

const (
	VenueHotel      VenueKind = "Hotel"
	VenueMahal      VenueKind = "Mahal"
	VenuePartyHall  VenueKind = "Party Hall"
	VenueRestaurant VenueKind = "Restaurant"
)

var venueKinds = []VenueKind{VenueHotel, VenueMahal, VenuePartyHall, VenueRestaurant}

type Venue struct {
	Name string    `json:"name"`
	Kind VenueKind `json:"kind"`
}

// Venues returns the catalog for a district in display order, or nil when the
// district is unknown.
func Venues(place string) []Venue {
	byKind, ok := venueCatalog[place]
	if !ok {
		return nil
	}
	var out []Venue
	for _, k := range venueKinds {
		for _, name := range byKind[k] {
			out = append(out, Venue{Name: name, Kind: k})
		}
	}
	return out
}

func KnownPlace(place string) bool {
	_, ok := venueCatalog[place]
	return ok
}

func VenueInPlace(place, location string) bool {
	for _, names := range venueCatalog[place] {
		for _, n := range names {
			if n == location {
				return true
			}
		}
	}
	return false
}

// Places returns the catalog districts sorted alphabetically.
func Places() []string {
	out := append([]string(nil), Districts...)
	sort.Strings(out)
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func KnownEventType(t string) bool { return contains(EventTypes, t) }

func KnownFoodPreference(f string) bool { return contains(FoodPreferences, f) }

var venueCatalog = map[string]map[VenueKind][]string{
	"Chennai": {
		VenueHotel: {
			"Taj Coromandel",
			"ITC Grand Chola",
			"The Leela Palace",
			"Park Hyatt Chennai",
			"Radisson Blu Hotel",
			"Hilton Chennai",
			"Marriott Chennai",
			"Novotel Chennai",
		},
		VenueMahal: {
			"Chettinad Palace",
			"Thanjavur Palace",
			"Mysore Palace (Chennai Branch)",
			"Royal Heritage Mahal",
			"Grand Palace Chennai",
			"Heritage Mahal",
		},
		VenuePartyHall: {
			"Chennai Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Celebration Hall",
			"Grandeur Party Palace",
			"Elite Event Hall",
			"Prestige Party Hall",
		},
		VenueRestaurant: {
			"Buhari Hotel",
			"Murugan Idli Shop",
			"Saravana Bhavan",
			"Ratna Cafe",
			"A2B - Adyar Ananda Bhavan",
			"Grand Sweets & Snacks",
			"Hotel Saravana Bhavan",
		},
	},
	"Delhi": {
		VenueHotel: {
			"The Oberoi Delhi",
			"Taj Palace",
			"The Leela Palace Delhi",
			"ITC Maurya",
			"The Imperial",
			"Hyatt Regency Delhi",
			"Marriott Delhi",
			"Radisson Blu Plaza",
		},
		VenueMahal: {
			"Red Fort Palace",
			"Humayun's Tomb Complex",
			"Qutub Minar Palace",
			"Jama Masjid Palace",
			"Lotus Temple Palace",
			"India Gate Palace",
		},
		VenuePartyHall: {
			"Delhi Convention Centre",
			"Pragati Maidan",
			"Grand Party Palace",
			"Royal Banquet Hall",
			"Elite Event Centre",
			"Prestige Party Hall",
			"Grandeur Palace",
		},
		VenueRestaurant: {
			"Karim's",
			"Bukhara",
			"Indian Accent",
			"Dum Pukht",
			"Khan Chacha",
			"Haldiram's",
			"Nirula's",
		},
	},
	"Bengaluru": {
		VenueHotel: {
			"The Oberoi Bengaluru",
			"Taj West End",
			"The Leela Palace Bengaluru",
			"ITC Gardenia",
			"Marriott Bengaluru",
			"Radisson Blu Bengaluru",
			"Hyatt Regency Bengaluru",
			"JW Marriott Bengaluru",
		},
		VenueMahal: {
			"Bangalore Palace",
			"Tipu Sultan's Summer Palace",
			"Vidhana Soudha Palace",
			"Cubbon Park Palace",
			"Lalbagh Palace",
			"Kempegowda Palace",
		},
		VenuePartyHall: {
			"Bangalore Palace Grounds",
			"Kanteerava Indoor Stadium",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Centre",
			"Prestige Party Palace",
			"Grandeur Hall",
		},
		VenueRestaurant: {
			"MTR",
			"Vidyarthi Bhavan",
			"Brahmins Coffee Bar",
			"CTR - Central Tiffin Room",
			"Koshy's",
			"Hallimane",
			"Udupi Garden",
		},
	},
	"Madurai": {
		VenueHotel: {
			"Heritage Madurai",
			"Fortune Pandiyan Hotel",
			"Hotel Supreme",
			"Madurai Residency",
			"Hotel Germanus",
			"Hotel Park Plaza",
			"Hotel Sangam",
		},
		VenueMahal: {
			"Thirumalai Nayak Palace",
			"Meenakshi Amman Temple Palace",
			"Madurai Palace",
			"Royal Heritage Mahal",
			"Grand Palace Madurai",
		},
		VenuePartyHall: {
			"Madurai Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Hall",
			"Prestige Party Palace",
			"Grandeur Hall",
		},
		VenueRestaurant: {
			"Murugan Idli Shop",
			"Hotel Saravana Bhavan",
			"Amma Mess",
			"Konar Mess",
			"Hotel Supreme",
			"Buhari Hotel",
		},
	},
	"Theni": {
		VenueHotel: {
			"Hotel Theni International",
			"Grand Palace Hotel",
			"Hotel Supreme Theni",
			"Theni Regency",
			"Hotel Green Park",
		},
		VenueMahal: {
			"Theni Palace",
			"Royal Heritage Mahal",
			"Grand Palace Theni",
			"Heritage Mahal",
		},
		VenuePartyHall: {
			"Theni Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Hall",
			"Prestige Party Palace",
		},
		VenueRestaurant: {
			"Hotel Saravana Bhavan",
			"Amma Mess",
			"Konar Mess",
			"Hotel Supreme",
			"Buhari Hotel",
		},
	},
	"Trichy": {
		VenueHotel: {
			"Hotel Breeze",
			"Sangam Hotel",
			"Hotel Rockfort Regency",
			"Trichy Grand",
			"Hotel Supreme Trichy",
		},
		VenueMahal: {
			"Rockfort Palace",
			"Srirangam Palace",
			"Trichy Palace",
			"Royal Heritage Mahal",
			"Grand Palace Trichy",
		},
		VenuePartyHall: {
			"Trichy Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Hall",
			"Prestige Party Palace",
		},
		VenueRestaurant: {
			"Hotel Saravana Bhavan",
			"Amma Mess",
			"Konar Mess",
			"Hotel Supreme",
			"Buhari Hotel",
		},
	},
	"Thirutani": {
		VenueHotel: {
			"Hotel Thirutani Regency",
			"Grand Palace Hotel",
			"Hotel Supreme Thirutani",
			"Thirutani International",
		},
		VenueMahal: {
			"Thirutani Palace",
			"Royal Heritage Mahal",
			"Grand Palace Thirutani",
			"Heritage Mahal",
		},
		VenuePartyHall: {
			"Thirutani Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Hall",
		},
		VenueRestaurant: {
			"Hotel Saravana Bhavan",
			"Amma Mess",
			"Hotel Supreme",
			"Buhari Hotel",
		},
	},
	"Salem": {
		VenueHotel: {
			"Hotel Salem Regency",
			"Grand Palace Hotel",
			"Hotel Supreme Salem",
			"Salem International",
			"Hotel Green Park Salem",
		},
		VenueMahal: {
			"Salem Palace",
			"Royal Heritage Mahal",
			"Grand Palace Salem",
			"Heritage Mahal",
		},
		VenuePartyHall: {
			"Salem Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Hall",
			"Prestige Party Palace",
		},
		VenueRestaurant: {
			"Hotel Saravana Bhavan",
			"Amma Mess",
			"Konar Mess",
			"Hotel Supreme",
			"Buhari Hotel",
		},
	},
	"Erode": {
		VenueHotel: {
			"Hotel Erode Regency",
			"Grand Palace Hotel",
			"Hotel Supreme Erode",
			"Erode International",
			"Hotel Green Park Erode",
		},
		VenueMahal: {
			"Erode Palace",
			"Royal Heritage Mahal",
			"Grand Palace Erode",
			"Heritage Mahal",
		},
		VenuePartyHall: {
			"Erode Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Hall",
			"Prestige Party Palace",
		},
		VenueRestaurant: {
			"Hotel Saravana Bhavan",
			"Amma Mess",
			"Konar Mess",
			"Hotel Supreme",
			"Buhari Hotel",
		},
	},
	"Namakkal": {
		VenueHotel: {
			"Hotel Namakkal Regency",
			"Grand Palace Hotel",
			"Hotel Supreme Namakkal",
			"Namakkal International",
		},
		VenueMahal: {
			"Namakkal Palace",
			"Royal Heritage Mahal",
			"Grand Palace Namakkal",
			"Heritage Mahal",
		},
		VenuePartyHall: {
			"Namakkal Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Hall",
		},
		VenueRestaurant: {
			"Hotel Saravana Bhavan",
			"Amma Mess",
			"Hotel Supreme",
			"Buhari Hotel",
		},
	},
	"Karur": {
		VenueHotel: {
			"Hotel Karur Regency",
			"Grand Palace Hotel",
			"Hotel Supreme Karur",
			"Karur International",
		},
		VenueMahal: {
			"Karur Palace",
			"Royal Heritage Mahal",
			"Grand Palace Karur",
			"Heritage Mahal",
		},
		VenuePartyHall: {
			"Karur Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Hall",
		},
		VenueRestaurant: {
			"Hotel Saravana Bhavan",
			"Amma Mess",
			"Hotel Supreme",
			"Buhari Hotel",
		},
	},
	"Ooty": {
		VenueHotel: {
			"Taj Savoy Hotel",
			"The Nilgiri Palace",
			"Hotel Lakeview",
			"Sterling Ooty",
			"Fortune Resort Sullivan Court",
			"Hotel Gem Park",
		},
		VenueMahal: {
			"Ooty Palace",
			"Royal Heritage Mahal",
			"Grand Palace Ooty",
			"Heritage Mahal",
			"Nilgiri Palace",
		},
		VenuePartyHall: {
			"Ooty Convention Centre",
			"Grand Party Hall",
			"Royal Banquet Hall",
			"Elite Event Hall",
			"Prestige Party Palace",
		},
		VenueRestaurant: {
			"Shinkow's Chinese Restaurant",
			"Nahar's Sidewalk Cafe",
			"Earl's Secret",
			"Place To Bee",
			"Hyderabad Biryani House",
		},
	},
}
