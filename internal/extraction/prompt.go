package extraction

import (
	"strings"

	"cloud.google.com/go/civil"
)

// candidateSchemaPrompt describes one candidate record; shared by both prompts.
const candidateSchemaPrompt = "Each transaction object must have these fields:\n" +
	"- \"merchant\": string (short name of what was bought, who paid, or the purpose)\n" +
	"- \"total_amount\": number (non-negative, no currency symbols, no thousand separators)\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"category\": string (EXACTLY one of the allowed categories)\n" +
	"- \"type\": one of \"expense\", \"income\", \"transfer\"\n" +
	"- \"source_wallet\": string or null\n" +
	"- \"destination_wallet\": string or null\n"

const typeRulesPrompt = "TYPE RULES (Indonesian input):\n" +
	"- expense: beli, bayar, jajan, makan, minum, isi (bensin/pulsa), sewa, langganan, belanja, keluar.\n" +
	"- income: gaji, terima, dapat, dikasih, dibayar, jual, laku, bonus, cashback, masuk, untung.\n" +
	"- transfer: transfer, pindah, kirim ke rekening sendiri, tarik tunai, setor tunai, top up, isi saldo.\n" +
	"- If \"type\" is \"transfer\", \"category\" MUST be \"Mutasi Saldo\".\n" +
	"- Never use \"Mutasi Saldo\" for expense or income.\n"

const walletRulesPrompt = "WALLET RULES:\n" +
	"- Only fill \"source_wallet\" when the text has an explicit pattern such as \"dari X\", \"pakai X\" or \"via X\".\n" +
	"- Only fill \"destination_wallet\" when the text has an explicit pattern such as \"ke X\".\n" +
	"- Otherwise set the wallet fields to null. Do NOT guess wallets.\n" +
	"- X is the wallet or bank name only (e.g. \"BCA\", \"Gopay\", \"Dompet\").\n"

const outputRulesPrompt = "Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n"

// BuildTextPrompt builds the extraction prompt for free text. The result is
// a pure function of its inputs.
func BuildTextPrompt(today civil.Date, text string, categories []string) string {
	var b strings.Builder

	b.WriteString("You are a bookkeeping assistant that turns Indonesian free text into transactions.\n\n")
	b.WriteString("Today's date: " + today.String() + "\n")
	b.WriteString("Input text: \"" + text + "\"\n\n")

	b.WriteString("Task:\n")
	b.WriteString("- Extract EVERY transaction mentioned in the input.\n")
	b.WriteString("- Transactions joined by \"dan\", \"terus\", \"lalu\", \"sama\", \"&\" or commas are SEPARATE transactions.\n")
	b.WriteString("- If no date is mentioned use today's date; resolve \"kemarin\" and \"tadi\" relative to today.\n")
	b.WriteString("- Amounts: \"rb\"/\"ribu\"/\"k\" = x1000, \"jt\"/\"juta\" = x1000000.\n")
	b.WriteString("- Output a JSON array of objects.\n\n")

	b.WriteString(candidateSchemaPrompt + "\n")
	writeCategories(&b, categories)
	b.WriteString(typeRulesPrompt + "\n")
	b.WriteString(walletRulesPrompt + "\n")
	b.WriteString(outputRulesPrompt)
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")

	return b.String()
}

// BuildImagePrompt builds the extraction prompt for a receipt photo.
func BuildImagePrompt(today civil.Date, categories []string) string {
	var b strings.Builder

	b.WriteString("You are a bookkeeping assistant reading the attached receipt photo.\n\n")
	b.WriteString("Today's date: " + today.String() + "\n\n")

	b.WriteString("Task:\n")
	b.WriteString("- Read the WHOLE receipt as ONE transaction.\n")
	b.WriteString("- \"merchant\" is the store name printed on the receipt.\n")
	b.WriteString("- \"total_amount\" is the final total paid.\n")
	b.WriteString("- If the receipt date is unreadable use today's date.\n")
	b.WriteString("- Output a single JSON object (not an array).\n\n")

	b.WriteString(candidateSchemaPrompt)
	b.WriteString("- \"items\": array of {\"name\": string, \"price\": number} for every purchased line\n\n")
	writeCategories(&b, categories)
	b.WriteString(typeRulesPrompt + "\n")
	b.WriteString(walletRulesPrompt + "\n")
	b.WriteString(outputRulesPrompt)
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")

	return b.String()
}

func writeCategories(b *strings.Builder, categories []string) {
	b.WriteString("Use ONLY the following categories:\n")
	for _, c := range categories {
		b.WriteString("  - " + c + "\n")
	}
	b.WriteString("If you are unsure, use category \"Lainnya\".\n\n")
}
