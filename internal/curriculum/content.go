package curriculum

var builtinModules = []Module{
	{
		ID:            "crypto_basics",
		Title:         "Cryptocurrency Basics",
		Description:   "Learn the fundamentals of cryptocurrency",
		Difficulty:    "beginner",
		EstimatedTime: "15 minutes",
		Content: `🪙 Cryptocurrency Basics

What is Cryptocurrency?
Cryptocurrency is digital money secured by cryptography. It runs on open networks and works without central banks.

Key Features:
• 🔒 Decentralized: no single authority controls it
• 🔐 Secure: protected by cryptographic techniques
• 🌐 Global: can be sent anywhere in minutes
• 💫 Transparent: every transaction is recorded on a blockchain

Popular Cryptocurrencies:
• Bitcoin (BTC): the first and most widely known
• Ethereum (ETH): a platform for smart contracts and apps
• Binance Coin (BNB): the native token of the Binance exchange

Getting Started:
1. 📚 Learn the basics (you are doing that right now!)
2. 🏦 Pick a reputable exchange
3. 💼 Set up a secure wallet
4. 💰 Start with small amounts
5. 📊 Research before you invest

Safety Tips:
⚠️ Never invest more than you can afford to lose
🔑 Keep your private keys to yourself
🎯 Do your own research (DYOR)

Ready for more? Ask me about blockchain technology or any crypto concept!`,
	},
	{
		ID:            "blockchain",
		Title:         "Blockchain Technology",
		Description:   "Understanding how blockchain works",
		Difficulty:    "intermediate",
		EstimatedTime: "20 minutes",
		Content: `⛓️ Blockchain Technology

What is a Blockchain?
A blockchain is a distributed ledger: a growing list of records (blocks) linked together and secured with cryptography.

Key Features:
• 🔗 Immutable: records cannot be changed once added
• 🌐 Distributed: copies live on many computers at once
• 🔒 Secure: every block is cryptographically sealed
• 👁️ Transparent: anyone can inspect the history

How a Transaction Works:
1. 📝 Someone initiates a transaction
2. 📊 It is broadcast to the network
3. ✅ The network validates it
4. 📦 It is bundled into a block
5. 🔗 The block is appended to the chain

Beyond Crypto:
• 📋 Supply chain tracking
• 🏥 Medical records
• 🗳️ Voting systems
• 🎨 Digital art (NFTs)

This is the technology underneath every cryptocurrency!`,
	},
	{
		ID:            "stocks_basics",
		Title:         "Stock Market Fundamentals",
		Description:   "Learn the basics of stock trading",
		Difficulty:    "beginner",
		EstimatedTime: "15 minutes",
		Content: `📈 Stock Market Fundamentals

What are Stocks?
A stock is an ownership share in a company. Buying one makes you a partial owner of that business.

Key Concepts:
• 📊 Share Price: the current market value of one share
• 🏢 Market Cap: the total value of all shares
• 💰 Dividends: profit payments to shareholders
• 📈 Capital Gains: profit from selling at a higher price

Types of Stocks:
• Common Stock: voting rights, dividend potential
• Preferred Stock: fixed dividends, no voting rights
• Growth Stocks: companies expected to grow fast
• Value Stocks: undervalued companies with potential

Market Basics:
• 🏛️ Exchanges: NYSE and NASDAQ are where stocks trade
• ⏰ Trading Hours: roughly 9:30 AM to 4:00 PM EST
• 📊 Orders: market orders vs limit orders

Getting Started:
1. 📖 Learn before you trade
2. 🎯 Define your goals
3. 💼 Open a brokerage account
4. 📊 Start with index funds or ETFs
5. 💰 Invest regularly and diversify

Want to learn chart reading next? Ask about technical analysis!`,
	},
	{
		ID:            "technical_analysis",
		Title:         "Technical Analysis",
		Description:   "Chart reading and technical indicators",
		Difficulty:    "intermediate",
		EstimatedTime: "25 minutes",
		Content: `📊 Technical Analysis

What is Technical Analysis?
The study of price charts and trading volume to estimate where prices might go next, based on where they have been.

Key Concepts:
• 📈 Trends: upward, downward, or sideways movement
• 🎯 Support and Resistance: levels where buyers or sellers step in
• 📊 Volume: how much is being traded
• 📉 Chart Patterns: recurring shapes that may signal moves

Popular Indicators:
• 📈 Moving Averages: average price over a window
• 💪 RSI: spots overbought and oversold conditions
• 📊 MACD: momentum from converging moving averages
• 🎯 Bollinger Bands: a volatility envelope around price

Chart Types:
• 📊 Line charts: simple price progression
• 📈 Candlesticks: open, high, low, and close per period

Remember: technical analysis is a tool, not a guarantee!`,
	},
	{
		ID:            "risk_management",
		Title:         "Risk Management",
		Description:   "Managing risk in trading and investing",
		Difficulty:    "intermediate",
		EstimatedTime: "20 minutes",
		Content: `🛡️ Risk Management

Why It Matters:
Protecting your capital matters more than chasing profits. Good risk management keeps you in the game long term.

Key Principles:
• 💰 Position Sizing: never risk more than you can afford to lose
• 🎯 Stop Losses: decide your exit before you enter
• 🔄 Diversification: spread risk across assets
• 📊 Risk-Reward Ratio: make sure the upside justifies the downside

The 1% Rule:
Never risk more than 1% of your portfolio on a single trade.

Portfolio Allocation:
• 🏦 Emergency fund: 3 to 6 months of expenses
• 🔒 Conservative: 60-70% in stable investments
• 📈 Growth: 20-30% in higher-risk investments
• 🎲 Speculative: 5-10% at most

Emotional Control:
• 😌 Stay calm: fear and greed make bad decisions
• 📋 Have a plan and stick to it
• 📚 Keep learning

Risk management is your financial safety net!`,
	},
}

var builtinQuestions = []Question{
	{
		Topic:      "crypto",
		Difficulty: "easy",
		Prompt:     "What is Bitcoin?",
		Options: []string{
			"A digital currency",
			"A physical coin",
			"A bank",
			"A government program",
		},
		Answer:      0,
		Explanation: "Bitcoin is a decentralized digital currency that operates without a central bank.",
	},
	{
		Topic:      "crypto",
		Difficulty: "medium",
		Prompt:     "What is a blockchain?",
		Options: []string{
			"A type of cryptocurrency",
			"A distributed ledger technology",
			"A trading platform",
			"A wallet app",
		},
		Answer:      1,
		Explanation: "A blockchain is a distributed ledger that maintains a continuously growing list of records.",
	},
	{
		Topic:      "stocks",
		Difficulty: "easy",
		Prompt:     "What does P/E ratio stand for?",
		Options: []string{
			"Price to Equity",
			"Price to Earnings",
			"Profit to Equity",
			"Profit to Earnings",
		},
		Answer:      1,
		Explanation: "The P/E ratio compares a stock's price to its earnings per share.",
	},
	{
		Topic:      "stocks",
		Difficulty: "medium",
		Prompt:     "What is market capitalization?",
		Options: []string{
			"Total debt of a company",
			"Total value of company shares",
			"Annual revenue",
			"Number of employees",
		},
		Answer:      1,
		Explanation: "Market cap is share price times the number of shares outstanding.",
	},
}

var builtinTips = []string{
	"💡 Daily Tip: Always do your own research before making any investment decision!",
	"💡 Daily Tip: Dollar-cost averaging can soften the impact of market volatility.",
	"💡 Daily Tip: Diversification is your best friend. Don't put all your eggs in one basket!",
	"💡 Daily Tip: Never invest money you can't afford to lose, especially in volatile markets.",
	"💡 Daily Tip: Emotional trading is the enemy of profitable trading. Stay disciplined!",
	"💡 Daily Tip: Understanding compound interest is crucial for long-term wealth building.",
	"💡 Daily Tip: Markets keep evolving, and so should your knowledge. Keep learning!",
}
