package extraction

// itemsFormat is appended to every prompt so all backends return the same shape
const itemsFormat = `Return ONLY valid JSON in this exact format:
{
  "items": [
    {
      "sku": "",
      "product_name": "Product name",
      "quantity": 1,
      "unit_price": 0.00,
      "currency": "AED",
      "notes": "",
      "low_confidence": false
    }
  ]
}

Important:
- quantity must be a whole number and unit_price a number (not a string)
- unit_price is the price of ONE unit; if only a line total is shown, divide it by the quantity
- currency is a 3-letter ISO 4217 code; use "AED" when no currency is shown
- set low_confidence to true for any line where you had to guess a name, quantity or price
- leave sku empty unless a product code is clearly printed or spoken
- if nothing was sold, return {"items": []}
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

const imagePrompt = `You are reading a photo or scan of a sales record: a handwritten sales sheet, a printed invoice, a till receipt or a product list. Read every line that records a product being sold and extract one item per line.

Skip subtotals, taxes, totals, payment lines and store header text.

` + itemsFormat

const audioPrompt = `You are listening to a sales rep dictating today's sales, for example "two iPhone 15 at three thousand five hundred dirhams, one case at one hundred". Extract one item per product mentioned. Convert spoken numbers to digits.

` + itemsFormat

const textPrompt = `You are reading text a sales rep pasted or dictated describing today's sales. It may be a chat message, a list, or free prose, in any language. Extract one item per product sold.

` + itemsFormat

// textMessage frames pasted text so it is not mistaken for instructions
func textMessage(text string) string {
	return textPrompt + "\n\nText:\n\"\"\"\n" + text + "\n\"\"\""
}
