package gemini

// ClassifierSystemInstruction frames yes/no gating calls.
const ClassifierSystemInstruction = `You screen group chat conversations about crypto tokens. You answer a single yes/no question about the messages you are given. Answer with a JSON boolean only.`

// ExtractorSystemInstruction frames structured extraction calls.
const ExtractorSystemInstruction = `You extract trade recommendations from group chat conversations about crypto tokens. You only report what participants actually said. You never invent tickers, contract addresses or recommenders, and you answer with a JSON array only.`
