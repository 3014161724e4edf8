package nutrition

import (
	"fmt"
	"strings"

	"glucoplate"
)

type templates map[glucoplate.Suitability]map[glucoplate.Language]string

// foodReasons are keyed by the catalog's primary name.
var foodReasons = map[string]templates{
	"أرز أبيض": {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s بكميات صغيرة (٣٠-٤٠ جرام) مع البروتين والألياف يمكن أن يكون مناسباً لمرضى السكري.",
			glucoplate.English: "%s in small amounts (30-40 g) with protein and fiber can suit people with diabetes.",
		},
		glucoplate.Moderate: {
			glucoplate.Arabic:  "%s متوسط المؤشر الجلايسيمي، تناوله باعتدال مع الخضار والبروتين لتقليل تأثيره على سكر الدم.",
			glucoplate.English: "%s has a medium glycemic index; eat it in moderation with vegetables and protein to soften its effect on blood sugar.",
		},
		glucoplate.Avoid: {
			glucoplate.Arabic:  "يفضل تجنب %s لأنه يرفع مستوى السكر بسرعة، استبدله بالأرز البني أو الكينوا.",
			glucoplate.English: "Better to avoid %s because it raises blood sugar quickly; swap it for brown rice or quinoa.",
		},
	},
	"بطاطا": {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s المسلوقة بكميات صغيرة ومع إضافة زيت الزيتون تكون مناسبة لمرضى السكري.",
			glucoplate.English: "Boiled %s in small amounts with olive oil is suitable for people with diabetes.",
		},
		glucoplate.Moderate: {
			glucoplate.Arabic:  "%s متوسطة المؤشر الجلايسيمي، يمكن تناولها بحذر ومراقبة نسبة السكر بعد تناولها.",
			glucoplate.English: "%s has a medium glycemic index; eat it carefully and check your sugar afterwards.",
		},
		glucoplate.Avoid: {
			glucoplate.Arabic:  "يفضل تجنب %s المقلية أو المهروسة لأنها ترفع نسبة السكر بسرعة.",
			glucoplate.English: "Better to avoid fried or mashed %s because it raises blood sugar quickly.",
		},
	},
	"خبز أبيض": {
		glucoplate.Avoid: {
			glucoplate.Arabic:  "يفضل تجنب %s لأنه يرفع مستوى السكر بسرعة، والخبز الأسمر كامل الحبوب بديل أفضل.",
			glucoplate.English: "Better to avoid %s because it raises blood sugar quickly; whole grain bread is a better choice.",
		},
	},
	"تمر": {
		glucoplate.Avoid: {
			glucoplate.Arabic:  "%s غني جداً بالسكر الطبيعي؛ إن تناولته فاكتفِ بحبة أو حبتين مع وجبة تحتوي على بروتين.",
			glucoplate.English: "%s is very high in natural sugar; if you have some, keep it to one or two with a protein-rich meal.",
		},
	},
}

type category string

const (
	catStarches   category = "starches"
	catProtein    category = "protein"
	catVegetables category = "vegetables"
	catFruits     category = "fruits"
	catSweets     category = "sweets"
	catBread      category = "bread"
	catDairy      category = "dairy"
	catNuts       category = "nuts"
	catBeverages  category = "beverages"
)

var categoryKeywords = []struct {
	keywords []string
	category category
}{
	{keywords: []string{"أرز", "rice", "مكرونة", "pasta", "نودلز", "noodle"}, category: catStarches},
	{keywords: []string{"لحم", "meat", "دجاج", "chicken", "سمك", "fish"}, category: catProtein},
	{keywords: []string{"خضار", "خضروات", "vegetable", "سلطة", "salad"}, category: catVegetables},
	{keywords: []string{"فواكه", "fruit", "تفاح", "apple", "موز", "banana"}, category: catFruits},
	{keywords: []string{"حلوى", "حلويات", "dessert", "كيك", "cake", "شوكولاتة", "chocolate"}, category: catSweets},
	{keywords: []string{"خبز", "bread", "toast", "معجنات", "pastry"}, category: catBread},
}

// catalogCategories maps the catalog's Category field.
var catalogCategories = map[string]category{
	"grains":         catStarches,
	"proteins":       catProtein,
	"vegetables":     catVegetables,
	"fruits":         catFruits,
	"desserts":       catSweets,
	"dairy":          catDairy,
	"nuts-seeds":     catNuts,
	"beverages":      catBeverages,
	"middle-eastern": catStarches,
}

var categoryReasons = map[category]templates{
	catStarches: {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s من النشويات الغنية بالألياف، تناوله بحصة معتدلة مع البروتين والخضار.",
			glucoplate.English: "%s is a fiber-rich starch; have a moderate portion with protein and vegetables.",
		},
		glucoplate.Moderate: {
			glucoplate.Arabic:  "%s من النشويات، التزم بحصة صغيرة وراقب مستوى السكر بعد تناوله.",
			glucoplate.English: "%s is a starch; keep to a small portion and check your blood sugar afterwards.",
		},
		glucoplate.Avoid: {
			glucoplate.Arabic:  "يفضل تجنب %s لأنه من النشويات سريعة الامتصاص التي ترفع السكر بسرعة.",
			glucoplate.English: "Better to avoid %s; it is a fast-absorbing starch that raises blood sugar quickly.",
		},
	},
	catProtein: {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s مصدر جيد للبروتين ولا يؤثر مباشرة على مستوى السكر في الدم.",
			glucoplate.English: "%s is a good source of protein and does not directly affect blood sugar.",
		},
		glucoplate.Moderate: {
			glucoplate.Arabic:  "تناول %s باعتدال مع مراعاة كمية الدهون وطريقة الطهي.",
			glucoplate.English: "Eat %s in moderation, minding the fat content and cooking method.",
		},
		glucoplate.Avoid: {
			glucoplate.Arabic:  "يفضل تجنب %s لارتفاع دهونه وتأثيرها السلبي على صحة القلب ومقاومة الأنسولين.",
			glucoplate.English: "Better to avoid %s; its high fat content is bad for heart health and insulin resistance.",
		},
	},
	catVegetables: {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s غني بالألياف ويساعد في إبطاء امتصاص السكر، مما يجعله خياراً مثالياً لمرضى السكري.",
			glucoplate.English: "%s is rich in fiber and slows sugar absorption, making it an ideal choice for people with diabetes.",
		},
		glucoplate.Moderate: {
			glucoplate.Arabic:  "تناول %s مع صلصات قليلة الدهون والسكر للحصول على أقصى فائدة.",
			glucoplate.English: "Have %s with low-fat, low-sugar dressings to get the most benefit.",
		},
	},
	catFruits: {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s من الفواكه منخفضة المؤشر الجلايسيمي ومناسب لمرضى السكري بكميات معتدلة.",
			glucoplate.English: "%s is a low glycemic index fruit and fits a diabetic diet in moderate amounts.",
		},
		glucoplate.Moderate: {
			glucoplate.Arabic:  "تناول %s باعتدال (حصة واحدة) مع مراعاة محتواه من السكر الطبيعي.",
			glucoplate.English: "Eat %s in moderation (one serving), keeping its natural sugar in mind.",
		},
		glucoplate.Avoid: {
			glucoplate.Arabic:  "يفضل تحديد كميات %s لأنه من الفواكه عالية السكر.",
			glucoplate.English: "Limit %s; it is a high-sugar fruit.",
		},
	},
	catSweets: {
		glucoplate.Moderate: {
			glucoplate.Arabic:  "يمكن تناول كميات صغيرة جداً من %s مع وجبة متوازنة على فترات متباعدة.",
			glucoplate.English: "Very small amounts of %s can be eaten with a balanced meal, and only occasionally.",
		},
		glucoplate.Avoid: {
			glucoplate.Arabic:  "يفضل تجنب %s لاحتوائه على نسب عالية من السكر الذي يرفع مستوى الجلوكوز بشكل سريع.",
			glucoplate.English: "Better to avoid %s; its high sugar content raises glucose quickly.",
		},
	},
	catBread: {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s كامل الحبوب يحتوي على ألياف تبطئ امتصاص السكر.",
			glucoplate.English: "Whole grain %s has fiber that slows sugar absorption.",
		},
		glucoplate.Moderate: {
			glucoplate.Arabic:  "تناول %s باعتدال (شريحة واحدة) مع البروتين والخضار لموازنة تأثيره على سكر الدم.",
			glucoplate.English: "Eat %s in moderation (one slice) with protein and vegetables to balance its effect on blood sugar.",
		},
		glucoplate.Avoid: {
			glucoplate.Arabic:  "يفضل تجنب %s لأنه يرفع مستوى السكر بسرعة.",
			glucoplate.English: "Better to avoid %s because it raises blood sugar quickly.",
		},
	},
	catDairy: {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s مصدر جيد للبروتين والكالسيوم بتأثير محدود على السكر.",
			glucoplate.English: "%s provides protein and calcium with a limited effect on blood sugar.",
		},
		glucoplate.Moderate: {
			glucoplate.Arabic:  "%s يحتوي على سكر الحليب، اختر الأنواع قليلة الدسم وغير المحلاة.",
			glucoplate.English: "%s contains milk sugar; choose low-fat, unsweetened options.",
		},
	},
	catNuts: {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s غني بالدهون الصحية والألياف، حفنة صغيرة وجبة خفيفة مناسبة.",
			glucoplate.English: "%s is rich in healthy fats and fiber; a small handful makes a good snack.",
		},
	},
	catBeverages: {
		glucoplate.Safe: {
			glucoplate.Arabic:  "%s بدون سكر مضاف مشروب مناسب لمرضى السكري.",
			glucoplate.English: "%s without added sugar is a suitable drink for people with diabetes.",
		},
		glucoplate.Moderate: {
			glucoplate.Arabic:  "اشرب %s بكميات قليلة لأنه يحتوي على سكر سريع الامتصاص.",
			glucoplate.English: "Drink %s in small amounts; its sugar is absorbed quickly.",
		},
		glucoplate.Avoid: {
			glucoplate.Arabic:  "يفضل تجنب %s لأن السكر في العصائر يرفع مستوى الجلوكوز بسرعة.",
			glucoplate.English: "Better to avoid %s; sugar in juices raises glucose quickly.",
		},
	},
}

var genericReasons = templates{
	glucoplate.Safe: {
		glucoplate.Arabic:  "%s آمن لمرضى السكري، منخفض المؤشر الجلايسيمي ومناسب للاستهلاك المعتدل.",
		glucoplate.English: "%s is safe for people with diabetes, with a low glycemic index, and fine in moderate amounts.",
	},
	glucoplate.Moderate: {
		glucoplate.Arabic:  "%s مناسب بشكل معتدل، يفضل تناوله بكميات محدودة ومراقبة تأثيره على مستوى السكر في الدم.",
		glucoplate.English: "%s is moderately suitable; eat limited amounts and watch its effect on your blood sugar.",
	},
	glucoplate.Avoid: {
		glucoplate.Arabic:  "يفضل تجنب %s لأنه غني بالكربوهيدرات سريعة الامتصاص ويمكن أن يرفع مستوى السكر بسرعة.",
		glucoplate.English: "Better to avoid %s; it is high in fast-absorbing carbohydrates and can raise blood sugar quickly.",
	},
}

// Reason explains tag for record in lang. Food-specific templates win over
// category templates, which win over the generic sentence.
func Reason(record glucoplate.FoodRecord, tag glucoplate.Suitability, lang glucoplate.Language) string {
	name := displayName(record, lang)

	if t, ok := lookupTemplate(foodReasons[strings.TrimSpace(record.Name)], tag, lang); ok {
		return fmt.Sprintf(t, name)
	}
	if cat, ok := categoryOf(record); ok {
		if t, ok := lookupTemplate(categoryReasons[cat], tag, lang); ok {
			return fmt.Sprintf(t, name)
		}
	}
	if t, ok := lookupTemplate(genericReasons, tag, lang); ok {
		return fmt.Sprintf(t, name)
	}
	return fmt.Sprintf(genericReasons[glucoplate.Moderate][glucoplate.English], name)
}

func lookupTemplate(ts templates, tag glucoplate.Suitability, lang glucoplate.Language) (string, bool) {
	if ts == nil {
		return "", false
	}
	byLang, ok := ts[tag]
	if !ok {
		return "", false
	}
	if t, ok := byLang[lang]; ok && t != "" {
		return t, true
	}
	if t, ok := byLang[glucoplate.English]; ok && t != "" {
		return t, true
	}
	return "", false
}

func categoryOf(record glucoplate.FoodRecord) (category, bool) {
	names := strings.ToLower(record.Name + " " + record.AlternateName)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(names, kw) {
				return ck.category, true
			}
		}
	}
	cat, ok := catalogCategories[record.Category]
	return cat, ok
}

func displayName(record glucoplate.FoodRecord, lang glucoplate.Language) string {
	if lang == glucoplate.English && record.AlternateName != "" {
		return record.AlternateName
	}
	return record.Name
}
