package question

var fallbackPool = []string{
	"What is one small thing I did recently that made you smile?",
	"If we could cook any dish together this weekend, what would it be?",
	"Which trip of ours would you love to relive?",
	"What is a habit of mine you secretly find adorable?",
	"What song reminds you of us?",
	"What did you want to be when you were ten years old?",
	"What is your favourite way to spend a lazy Sunday together?",
	"Which meal from your childhood would you like me to taste?",
	"What is something new you would like us to try this month?",
	"When did you first feel at home with me?",
	"What is a dream you have never told anyone?",
	"Which season suits us best, and why?",
	"What would our perfect date night look like?",
	"What is one thing you are proud of this week?",
	"If our home had a motto, what would it be?",
	"What is a movie we should watch together next?",
	"Which of our photos is your favourite?",
	"What is something you want to learn from me?",
	"Where do you see us in five years?",
	"What made you laugh the hardest this year?",
	"What is your favourite memory from our first month together?",
	"If you could give us a day off from everything, how would we spend it?",
	"What is one small promise we could make to each other this week?",
	"Which dish should be our signature recipe?",
	"What is a compliment you would like to hear more often?",
	"What are three words that describe our home?",
	"Which friend of ours would you want to cook dinner for?",
	"What is one thing on our wishlist you are most excited about?",
	"What tradition would you like us to start?",
	"What do you appreciate most about our everyday routine?",
}
