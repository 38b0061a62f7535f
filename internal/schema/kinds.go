package schema

// kinds is the registry of supported resource kinds. Attribute names mirror
// the provider payloads in providers/aws.
var kinds = map[string]*Schema{
	"null.Resource": {
		Attributes: map[string]Attr{
			"triggers": {Type: TypeMap, ForcesReplacement: true},
		},
	},

	"aws.ec2.Vpc": {
		Attributes: map[string]Attr{
			"cidrBlock":          {Type: TypeString, Required: true, ForcesReplacement: true},
			"enableDnsSupport":   {Type: TypeBool},
			"enableDnsHostnames": {Type: TypeBool},
			"tags":               {Type: TypeMap},
		},
	},
	"aws.ec2.Subnet": {
		Attributes: map[string]Attr{
			"vpcId":               {Type: TypeString, Required: true, ForcesReplacement: true},
			"cidrBlock":           {Type: TypeString, Required: true, ForcesReplacement: true},
			"availabilityZone":    {Type: TypeString, ForcesReplacement: true},
			"mapPublicIpOnLaunch": {Type: TypeBool},
			"tags":                {Type: TypeMap},
		},
	},
	"aws.ec2.InternetGateway": {
		Attributes: map[string]Attr{
			"vpcId": {Type: TypeString, Required: true, ForcesReplacement: true},
			"tags":  {Type: TypeMap},
		},
	},
	"aws.ec2.RouteTable": {
		Attributes: map[string]Attr{
			"vpcId": {Type: TypeString, Required: true, ForcesReplacement: true},
			"tags":  {Type: TypeMap},
		},
	},
	"aws.ec2.Route": {
		Attributes: map[string]Attr{
			"routeTableId":         {Type: TypeString, Required: true, ForcesReplacement: true},
			"destinationCidrBlock": {Type: TypeString, Required: true, ForcesReplacement: true},
			"gatewayId":            {Type: TypeString},
			"natGatewayId":         {Type: TypeString},
		},
		// A route targets exactly one gateway; declaring both or neither is
		// a defect in the configuration, not something to reconcile around.
		Check: exactlyOneOf("gatewayId", "natGatewayId"),
	},
	"aws.ec2.RouteTableAssociation": {
		Attributes: map[string]Attr{
			"routeTableId": {Type: TypeString, Required: true, ForcesReplacement: true},
			"subnetId":     {Type: TypeString, Required: true, ForcesReplacement: true},
		},
	},
	"aws.ec2.ElasticIp": {
		Attributes: map[string]Attr{
			"domain": {Type: TypeString},
			"tags":   {Type: TypeMap},
		},
	},
	"aws.ec2.NatGateway": {
		Attributes: map[string]Attr{
			"subnetId":     {Type: TypeString, Required: true, ForcesReplacement: true},
			"allocationId": {Type: TypeString, Required: true, ForcesReplacement: true},
			"tags":         {Type: TypeMap},
		},
	},
	"aws.ec2.SecurityGroup": {
		Attributes: map[string]Attr{
			"name":        {Type: TypeString, Required: true, ForcesReplacement: true},
			"description": {Type: TypeString, ForcesReplacement: true},
			"vpcId":       {Type: TypeString, Required: true, ForcesReplacement: true},
			"ingress":     {Type: TypeList},
			"egress":      {Type: TypeList},
			"tags":        {Type: TypeMap},
		},
	},

	"aws.elbv2.LoadBalancer": {
		Attributes: map[string]Attr{
			"name":           {Type: TypeString, Required: true, ForcesReplacement: true},
			"type":           {Type: TypeString, ForcesReplacement: true},
			"internal":       {Type: TypeBool, ForcesReplacement: true},
			"subnets":        {Type: TypeList, Required: true},
			"securityGroups": {Type: TypeList},
			"tags":           {Type: TypeMap},
		},
	},
	"aws.elbv2.TargetGroup": {
		Attributes: map[string]Attr{
			"name":            {Type: TypeString, Required: true, ForcesReplacement: true},
			"port":            {Type: TypeNumber, Required: true},
			"protocol":        {Type: TypeString, Required: true},
			"vpcId":           {Type: TypeString, Required: true, ForcesReplacement: true},
			"healthCheckPath": {Type: TypeString},
		},
	},
	"aws.elbv2.Listener": {
		Attributes: map[string]Attr{
			"loadBalancerArn": {Type: TypeString, Required: true, ForcesReplacement: true},
			"port":            {Type: TypeNumber, Required: true},
			"protocol":        {Type: TypeString, Required: true},
			"targetGroupArn":  {Type: TypeString, Required: true},
		},
	},

	"aws.ec2.LaunchTemplate": {
		Attributes: map[string]Attr{
			"name":               {Type: TypeString, Required: true, ForcesReplacement: true},
			"imageId":            {Type: TypeString, Required: true},
			"instanceType":       {Type: TypeString, Required: true},
			"keyName":            {Type: TypeString},
			"securityGroupIds":   {Type: TypeList},
			"userData":           {Type: TypeString},
			"iamInstanceProfile": {Type: TypeString},
		},
	},
	"aws.autoscaling.Group": {
		Attributes: map[string]Attr{
			"name":             {Type: TypeString, Required: true, ForcesReplacement: true},
			"minSize":          {Type: TypeNumber, Required: true},
			"maxSize":          {Type: TypeNumber, Required: true},
			"desiredCapacity":  {Type: TypeNumber},
			"launchTemplateId": {Type: TypeString, Required: true},
			"subnetIds":        {Type: TypeList, Required: true},
			"targetGroupArns":  {Type: TypeList},
			"tags":             {Type: TypeMap},
		},
	},

	"aws.iam.Role": {
		Attributes: map[string]Attr{
			"name":             {Type: TypeString, Required: true, ForcesReplacement: true},
			"assumeRolePolicy": {Type: TypeString, Required: true},
			"description":      {Type: TypeString},
			"tags":             {Type: TypeMap},
		},
	},
	"aws.iam.RolePolicy": {
		Attributes: map[string]Attr{
			"name":   {Type: TypeString, Required: true, ForcesReplacement: true},
			"role":   {Type: TypeString, Required: true, ForcesReplacement: true},
			"policy": {Type: TypeString, Required: true},
		},
	},
	"aws.iam.InstanceProfile": {
		Attributes: map[string]Attr{
			"name": {Type: TypeString, Required: true, ForcesReplacement: true},
			"role": {Type: TypeString, Required: true},
		},
	},

	"aws.s3.Bucket": {
		Attributes: map[string]Attr{
			"bucket":     {Type: TypeString, Required: true, ForcesReplacement: true},
			"versioning": {Type: TypeBool},
			"tags":       {Type: TypeMap},
		},
	},
	"aws.rds.Instance": {
		Attributes: map[string]Attr{
			"identifier":          {Type: TypeString, Required: true, ForcesReplacement: true},
			"engine":              {Type: TypeString, Required: true, ForcesReplacement: true},
			"engineVersion":       {Type: TypeString},
			"instanceClass":       {Type: TypeString, Required: true},
			"allocatedStorage":    {Type: TypeNumber, Required: true},
			"dbName":              {Type: TypeString, ForcesReplacement: true},
			"username":            {Type: TypeString, ForcesReplacement: true},
			"password":            {Type: TypeString},
			"vpcSecurityGroupIds": {Type: TypeList},
			"multiAz":             {Type: TypeBool},
		},
	},
	"aws.sns.Topic": {
		Attributes: map[string]Attr{
			"name": {Type: TypeString, Required: true, ForcesReplacement: true},
			"tags": {Type: TypeMap},
		},
	},
}
