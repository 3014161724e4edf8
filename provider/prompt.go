// Package provider holds the prompts shared by every AI backend. The
// backends themselves live in the subpackages.
package provider

import "glucoplate"

// Recognition prompts ask for names in the catalog's primary language so the
// resolver can match them exactly.
const (
	recognitionSystemAR = `أنت خبير في تحليل الصور والتعرف على الأطعمة. حدد أولاً ما إذا كانت الصورة تحتوي على طعام. إذا لم تحتوي على أي طعام أجب بمصفوفة فارغة. إذا احتوت على طعام فاذكر الأطعمة الواضحة باللغة العربية مع قيمة ثقة بين 0 و1، بحد أقصى 5 عناصر.`

	recognitionSystemEN = `You are a food recognition expert. First decide whether the image contains food. If it does not, answer with an empty list. Otherwise name every clearly visible food in Arabic with a confidence between 0 and 1, at most 5 items.`

	// FoodsObjectFormat is appended for backends that return {"foods": [...]}.
	FoodsObjectFormat = `Return ONLY a JSON object of the form {"foods":[{"name":"...","confidence":0.9}]} with no other text.`

	// ArrayFormat is appended for backends that return a bare array.
	ArrayFormat = `Return ONLY a JSON array of the form [{"name":"...","confidence":0.9}] with no other text.`

	RecognitionUserText = "Identify all food items in this image."
)

const (
	chatSystemAR = `أنت مساعد طبي متخصص في التغذية العلاجية لمرضى السكري. قدم إجابات قصيرة وموجزة جداً (من جملة إلى ثلاث جمل) بلغة عربية بسيطة وواضحة. ركز على المعلومات الغذائية المتعلقة بالسكري. لا تدعي أنك طبيب ولا تقدم تشخيصات طبية.`

	chatSystemEN = `You are a medical assistant specializing in therapeutic nutrition for diabetic patients. Give very brief answers (one to three sentences) in simple, clear English. Focus on nutrition advice related to diabetes. Do not claim to be a doctor or provide medical diagnoses.`
)

// RecognitionPrompt returns the system prompt for image recognition with the
// response contract appended.
func RecognitionPrompt(lang glucoplate.Language, format string) string {
	base := recognitionSystemEN
	if lang == glucoplate.Arabic {
		base = recognitionSystemAR
	}
	return base + "\n" + format
}

// ChatPrompt returns the localized chat system prompt.
func ChatPrompt(lang glucoplate.Language) string {
	if lang == glucoplate.English {
		return chatSystemEN
	}
	return chatSystemAR
}
