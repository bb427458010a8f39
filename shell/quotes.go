package shell

import "time"

// CarouselInterval is how often the home page advances to the next quote.
const CarouselInterval = 6 * time.Second

type Quote struct {
	Name  string
	Role  string
	Text  string
	Image string
}

var quotes = []Quote{
	{
		Name:  "Virgil Abloh",
		Role:  "Designer & Visionary",
		Text:  "Everything I do is for the 17-year-old version of myself.",
		Image: "/static/img/abloh.svg",
	},
	{
		Name:  "Andrew Huberman",
		Role:  "Neuroscientist",
		Text:  "Rest is the idle state that prepares you for action.",
		Image: "/static/img/huberman.svg",
	},
	{
		Name:  "Jay Shetty",
		Role:  "Author & Life Coach",
		Text:  "Don't let the world change your smile.",
		Image: "/static/img/jay.svg",
	},
	{
		Name:  "Maya Angelou",
		Role:  "Poet & Civil Rights Activist",
		Text:  "You are enough. You have nothing to prove to anybody.",
		Image: "/static/img/maya.svg",
	},
	{
		Name:  "Steve Jobs",
		Role:  "Co-founder of Apple",
		Text:  "Design is not just what it looks like and feels like. Design is how it works.",
		Image: "/static/img/jobs.svg",
	},
	{
		Name:  "Codie Sanchez",
		Role:  "Investor & Entrepreneur",
		Text:  "Real wealth is having the time to do what you want.",
		Image: "/static/img/codie.svg",
	},
	{
		Name:  "Elon Musk",
		Role:  "CEO of Tesla & SpaceX",
		Text:  "When something is important enough, you do it even if the odds are not in your favor.",
		Image: "/static/img/musk.svg",
	},
	{
		Name:  "Pharrell Williams",
		Role:  "Musician & Designer",
		Text:  "Wealth is of the heart and mind, not the pocket.",
		Image: "/static/img/pharrell.svg",
	},
}

// Quotes returns a copy of the fixed carousel quotations.
func Quotes() []Quote {
	return append([]Quote(nil), quotes...)
}

// Carousel is the server-rendered view of the quote carousel at one index.
type Carousel struct {
	Index    int
	Quotes   []Quote
	Interval time.Duration
}

// NewCarousel positions the carousel at index, wrapping in both directions.
func NewCarousel(index int) Carousel {
	return Carousel{
		Index:    wrap(index, len(quotes)),
		Quotes:   Quotes(),
		Interval: CarouselInterval,
	}
}

func (c Carousel) Current() Quote {
	return c.Quotes[c.Index]
}

func (c Carousel) Next() int {
	return wrap(c.Index+1, len(c.Quotes))
}

func (c Carousel) Prev() int {
	return wrap(c.Index-1, len(c.Quotes))
}

// Position is the 1-based index shown as "3 / 8".
func (c Carousel) Position() int {
	return c.Index + 1
}

func (c Carousel) IntervalMillis() int64 {
	return c.Interval.Milliseconds()
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}
