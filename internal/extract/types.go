package extract

// EquipmentStats is the combat-equipment sub-record of an equipable item.
type EquipmentStats struct {
	AttackStab     int    `json:"attackStab"`
	AttackSlash    int    `json:"attackSlash"`
	AttackCrush    int    `json:"attackCrush"`
	AttackMagic    int    `json:"attackMagic"`
	AttackRanged   int    `json:"attackRanged"`
	DefendStab     int    `json:"defendStab"`
	DefendSlash    int    `json:"defendSlash"`
	DefendCrush    int    `json:"defendCrush"`
	DefendMagic    int    `json:"defendMagic"`
	DefendRanged   int    `json:"defendRanged"`
	Strength       int    `json:"str"`
	RangedStrength int    `json:"rangedStr"`
	MagicDamage    int    `json:"magicDamage"`
	Prayer         int    `json:"prayer"`
	Slot           string `json:"slot"`
	Speed          int    `json:"speed"`
	AttackRange    int    `json:"attackRange"`
	CombatStyle    string `json:"combatStyle"`
}

// Item is one tradeable (or not) game item extracted from an item page.
// Multi-variant pages yield several items cross-linked via RelatedItems.
type Item struct {
	ID                int             `json:"id"`
	Name              string          `json:"name"`
	Examine           string          `json:"examine"`
	Image             string          `json:"image"`
	IsMembers         bool            `json:"isMembers"`
	IsTradeable       bool            `json:"isTradeable"`
	IsEquipable       bool            `json:"isEquipable"`
	IsStackable       bool            `json:"isStackable"`
	IsOnGrandExchange bool            `json:"isOnGrandExchange"`
	IsAlchable        bool            `json:"isAlchable"`
	IsInMainGame      bool            `json:"isInMainGame"`
	Drop              string          `json:"drop"`
	Value             int             `json:"value"`
	Weight            float64         `json:"weight"`
	BuyLimit          int             `json:"limit"`
	RelatedItems      []int           `json:"relatedItems"`
	Aliases           []string        `json:"aliases"`
	EquipmentStats    *EquipmentStats `json:"equipmentStats,omitempty"`
}

// MonsterCombatStats is the combat stat sub-record of a monster.
type MonsterCombatStats struct {
	Attack        int  `json:"attack"`
	Strength      int  `json:"strength"`
	Defence       int  `json:"defence"`
	Magic         int  `json:"magic"`
	Ranged        int  `json:"ranged"`
	AttackBonus   int  `json:"attackBonus"`
	StrengthBonus int  `json:"strengthBonus"`
	AttackMagic   int  `json:"attackMagic"`
	MagicBonus    int  `json:"magicBonus"`
	AttackRanged  int  `json:"attackRanged"`
	RangedBonus   int  `json:"rangedBonus"`
	DefenceStab   int  `json:"defenceStab"`
	DefenceSlash  int  `json:"defenceSlash"`
	DefenceCrush  int  `json:"defenceCrush"`
	DefenceMagic  int  `json:"defenceMagic"`
	DefenceRanged int  `json:"defenceRanged"`
	ImmunePoison  bool `json:"immunePoison"`
	ImmuneVenom   bool `json:"immuneVenom"`
	ImmuneCannon  bool `json:"immuneCannon"`
	ImmuneThrall  bool `json:"immuneThrall"`
}

// MonsterDrop is one drop-table line. ItemID is nil when the drop name could
// not be resolved against the item set.
type MonsterDrop struct {
	Name     string `json:"name"`
	ItemID   *int   `json:"itemId"`
	Quantity string `json:"quantity"`
	Rarity   string `json:"rarity"`
}

// Monster is one monster variant extracted from a monster page. A single
// in-game monster may carry several object ids.
type Monster struct {
	ID          int                `json:"id"`
	IDs         []int              `json:"ids"`
	Version     string             `json:"version"`
	Name        string             `json:"name"`
	Image       string             `json:"image"`
	Members     bool               `json:"members"`
	Level       int                `json:"level"`
	Size        int                `json:"size"`
	Examine     string             `json:"examine"`
	XPBonus     float64            `json:"xpBonus"`
	MaxHit      int                `json:"maxHit"`
	Aggressive  bool               `json:"aggressive"`
	Poisonous   bool               `json:"poisonous"`
	AttackStyle string             `json:"attackStyle"`
	AttackSpeed int                `json:"attackSpeed"`
	SlayerXP    float64            `json:"slayXp"`
	Category    string             `json:"category"`
	Hitpoints   int                `json:"hitpoints"`
	AssignedBy  []string           `json:"assignedBy"`
	CombatStats MonsterCombatStats `json:"combatStats"`
	RespawnTime int                `json:"respawnTime"`
	DropVersion string             `json:"dropTable"`
	Drops       []MonsterDrop      `json:"drops"`
	Aliases     []string           `json:"aliases"`
}

// ShopItem is one shop inventory line.
type ShopItem struct {
	ItemID       int `json:"itemId"`
	BaseQuantity int `json:"baseQuantity"`
	RestockTime  int `json:"restockTime"`
}

// Shop is one store extracted from a shop page.
type Shop struct {
	Name             string     `json:"name"`
	PageID           int        `json:"pageId"`
	BuyPercent       float64    `json:"buyPercent"`
	SellPercent      float64    `json:"sellPercent"`
	BuyChangePercent float64    `json:"buyChangePercent"`
	Inventory        []ShopItem `json:"inventory"`
}

// Set is an item set: a container item assembled from component items.
type Set struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	ComponentIDs []int  `json:"componentIds"`
}

// RecipeMaterial is one input or output line of a recipe.
type RecipeMaterial struct {
	ID       int     `json:"id"`
	Quantity float64 `json:"quantity"`
	Cost     float64 `json:"cost,omitempty"`
	Notes    string  `json:"notes,omitempty"`
	Text     string  `json:"text,omitempty"`
	SubText  string  `json:"subText,omitempty"`
}

// RecipeSkill is one skill requirement of a recipe.
type RecipeSkill struct {
	Name      string  `json:"name"`
	Level     int     `json:"lvl"`
	XP        float64 `json:"xp"`
	Boostable bool    `json:"boostable"`
}

// Recipe is one crafting/processing recipe. Ticks is nil when the page does
// not state a duration.
type Recipe struct {
	Name      string           `json:"name,omitempty"`
	Inputs    []RecipeMaterial `json:"inputs"`
	Outputs   []RecipeMaterial `json:"outputs"`
	Skills    []RecipeSkill    `json:"skills"`
	Members   bool             `json:"members"`
	Ticks     *int             `json:"ticks"`
	TicksNote string           `json:"ticksNote,omitempty"`
	ToolIDs   []int            `json:"toolIds"`
	Facility  string           `json:"facility,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// SpawnPoint is a world coordinate with a spawn quantity.
type SpawnPoint struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Plane    int `json:"plane"`
	Quantity int `json:"quantity"`
}

// ItemSpawn is one world-spawn of an item at a set of coordinates.
type ItemSpawn struct {
	ItemID   int          `json:"itemId"`
	Name     string       `json:"name"`
	Location string       `json:"location"`
	Members  bool         `json:"members"`
	Spawns   []SpawnPoint `json:"spawns"`
}
